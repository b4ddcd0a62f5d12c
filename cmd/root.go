// cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/ColonelBlimp/morsekey/internal/clock"
	"github.com/ColonelBlimp/morsekey/internal/config"
	"github.com/ColonelBlimp/morsekey/internal/cw"
	"github.com/ColonelBlimp/morsekey/internal/logging"
	"github.com/ColonelBlimp/morsekey/internal/publish"
	"github.com/ColonelBlimp/morsekey/internal/recovery"
	"github.com/ColonelBlimp/morsekey/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var rootCmd = &cobra.Command{
	Use:   "morsekey",
	Short: "Morse key decoder for GPIO, ADC and sidetone inputs",
	Long: `A real-time Morse decoder that times a straight key (GPIO pin, ADC channel
or audio sidetone), decodes each burst of keying after a pause, and serves
the result over HTTP, websockets and MQTT.`,
	SilenceUsage: true,
	RunE:         runDecoder,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flagBindings maps persistent flags to config keys.
var flagBindings = map[string]string{
	"source":    "source",
	"pin":       "gpio_pin",
	"device":    "device_index",
	"frequency": "tone_frequency",
	"listen":    "listen",
	"mqtt":      "mqtt_broker",
	"debug":     "debug",
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().StringP("source", "s", config.SourceDigital, "signal source: analog, digital, tone or simulated")
	rootCmd.PersistentFlags().StringP("pin", "p", "GPIO17", "GPIO pin name for the digital source")
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio device index for the tone source (-1 for default)")
	rootCmd.PersistentFlags().Float64P("frequency", "f", 600, "sidetone frequency in Hz")
	rootCmd.PersistentFlags().StringP("listen", "l", ":5000", "status server listen address")
	rootCmd.PersistentFlags().StringP("mqtt", "m", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")

	bindFlags()

	rootCmd.AddCommand(newSimulateCmd(), newTableCmd(), newWatchCmd())
}

func bindFlags() {
	for flag, key := range flagBindings {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	bindFlags()
}

// demoText is keyed by the simulated source when the decoder runs without hardware.
const demoText = "CQ CQ DE MORSEKEY K"

func runDecoder(cmd *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return err
	}
	logger := logging.New(cmd.ErrOrStderr(), settings.Debug)

	ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub := publish.New()
	classifier, err := cw.NewClassifier(settings.Timing(), pub, logger)
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	srv, err := server.New(server.Config{
		Listen:    settings.Listen,
		IndexPath: settings.IndexPath,
	}, pub, classifier, logger)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	fanout := publish.NewFanout(pub.Updates(), logger)
	fanout.Add(publish.LogSink{Logger: logger})
	fanout.Add(srv.Hub())
	if settings.MQTTBroker != "" {
		sink, err := publish.DialMQTT(publish.MQTTConfig{
			Broker:   settings.MQTTBroker,
			Topic:    settings.MQTTTopic,
			QoS:      byte(settings.MQTTQoS),
			Retained: settings.MQTTRetained,
		}, logger)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer sink.Close()
		fanout.Add(sink)
	}

	clk := clock.NewMonotonic()
	src, closeSource, err := openSource(settings, clk, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	fanout.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer recovery.HandlePanic()
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		defer recovery.HandlePanic()
		err := classifier.Run(gctx, src, clk)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	logger.Info("morsekey: shutting down", "stats", classifier.Stats().String())
	return err
}
