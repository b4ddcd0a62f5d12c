package cmd

import (
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ColonelBlimp/morsekey/internal/watch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [URL]",
		Short: "Follow a running decoder in the terminal",
		Long: `Watch polls the status server of a running decoder and shows the latest
message. URL defaults to the configured listen address on localhost.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")
			target := watchTarget(viper.GetString("listen"))
			if len(args) == 1 {
				target = args[0]
			}

			ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch.Run(ctx, watch.NewClient(target, watch.DefaultTimeout), interval, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Duration("interval", 500*time.Millisecond, "poll interval")
	return cmd
}

// watchTarget turns a listen address into a URL reachable from this host.
func watchTarget(listen string) string {
	switch {
	case listen == "":
		return "localhost:5000"
	case strings.HasPrefix(listen, ":"):
		return "localhost" + listen
	case strings.HasPrefix(listen, "0.0.0.0:"):
		return "localhost" + strings.TrimPrefix(listen, "0.0.0.0")
	default:
		return listen
	}
}
