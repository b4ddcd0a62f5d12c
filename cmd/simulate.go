package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ColonelBlimp/morsekey/internal/clock"
	"github.com/ColonelBlimp/morsekey/internal/config"
	"github.com/ColonelBlimp/morsekey/internal/cw"
	"github.com/ColonelBlimp/morsekey/internal/logging"
	"github.com/ColonelBlimp/morsekey/internal/publish"
	"github.com/ColonelBlimp/morsekey/internal/signal"
	"github.com/spf13/cobra"
)

const (
	// instantStep is the virtual time between reads in --instant mode.
	instantStep = time.Millisecond
	// settleMargin is extra time past the idle timeout before giving up on a decode.
	settleMargin = 100 * time.Millisecond
)

var errNothingToKey = errors.New("nothing to key: text has no characters with a Morse code")

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate TEXT",
		Short: "Key TEXT through the decoder and print what comes out",
		Long: `Simulate encodes TEXT, keys it through the timing classifier with a
simulated straight key, and prints the decoded message. By default the key
runs in real time; --instant replays it against a virtual clock.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSimulate,
	}
	cmd.Flags().Bool("instant", false, "replay against a virtual clock instead of real time")
	cmd.Flags().Duration("bounce", 0, "contact bounce after every edge (e.g. 3ms)")
	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	settings, err := config.Get()
	if err != nil {
		return err
	}
	instant, _ := cmd.Flags().GetBool("instant")
	bounce, _ := cmd.Flags().GetDuration("bounce")

	text := strings.Join(args, " ")
	pattern := cw.Encode(text)
	if pattern == "" {
		return errNothingToKey
	}

	keying := signal.DefaultKeying()
	keying.Bounce = bounce
	pub := publish.New()
	classifier, err := cw.NewClassifier(settings.Timing(), pub, logging.New(cmd.ErrOrStderr(), settings.Debug))
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	if instant {
		err = replayInstant(classifier, pattern, keying)
	} else {
		err = replayRealtime(cmd.Context(), classifier, pattern, keying)
	}
	if err != nil {
		return err
	}

	snap := pub.Snapshot()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sent:    %s\n", strings.ToUpper(text))
	fmt.Fprintf(out, "morse:   %s\n", snap.Raw)
	fmt.Fprintf(out, "decoded: %s\n", snap.Message)
	return nil
}

func replayInstant(c *cw.Classifier, pattern string, keying signal.Keying) error {
	clk := clock.NewManual(0)
	src, err := signal.NewSimulated(pattern, keying, clk)
	if err != nil {
		return err
	}
	total := src.Duration() + c.Timing().IdleTimeout + settleMargin
	for elapsed := time.Duration(0); elapsed <= total; elapsed += instantStep {
		c.Poll(src.Read(), clk.Now())
		clk.Advance(instantStep)
	}
	return nil
}

func replayRealtime(ctx context.Context, c *cw.Classifier, pattern string, keying signal.Keying) error {
	clk := clock.NewMonotonic()
	src, err := signal.NewSimulated(pattern, keying, clk)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, src.Duration()+c.Timing().IdleTimeout+settleMargin)
	defer cancel()

	if err := c.Run(ctx, src, clk); !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
