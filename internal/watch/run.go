package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Run shows the terminal UI when out is a terminal, plain lines otherwise.
// It returns when ctx is cancelled or the user quits.
func Run(ctx context.Context, c *Client, interval time.Duration, out io.Writer) error {
	if !isTerminal(out) {
		return Plain(ctx, c, interval, out)
	}
	program := tea.NewProgram(NewModel(c, interval, c.BaseURL()),
		tea.WithContext(ctx), tea.WithAltScreen(), tea.WithOutput(out))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// Plain prints one line per new decode cycle, and one line per change in
// connection error, until ctx is cancelled.
func Plain(ctx context.Context, f Fetcher, interval time.Duration, out io.Writer) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastCycle uint64
	var lastErr string
	for {
		st, err := f.Fetch(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			if err.Error() != lastErr {
				lastErr = err.Error()
				fmt.Fprintf(out, "watch: %v\n", err)
			}
		case st.Snapshot.Cycle != lastCycle:
			lastErr = ""
			lastCycle = st.Snapshot.Cycle
			fmt.Fprintf(out, "[%d] %s | %s\n", st.Snapshot.Cycle, st.Snapshot.Raw, st.Snapshot.Message)
		default:
			lastErr = ""
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
