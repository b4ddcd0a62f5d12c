package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func resetViperForTest() {
	viper.Reset()
}

// setupConfig points HOME at a temp dir holding content as the morsekey config.
func setupConfig(t *testing.T, content string) {
	t.Helper()
	resetViperForTest()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	configDir := filepath.Join(tmpDir, ".config", "morsekey")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	origDir, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origDir)
	})
}

// execute runs rootCmd with args after restoring every flag to its default.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	resetFlags(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		resetFlags(c.Flags())
	}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_HasExpectedFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	tests := []struct {
		name         string
		shorthand    string
		defaultValue string
	}{
		{"source", "s", "digital"},
		{"pin", "p", "GPIO17"},
		{"device", "d", "-1"},
		{"frequency", "f", "600"},
		{"listen", "l", ":5000"},
		{"mqtt", "m", ""},
		{"debug", "D", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := flags.Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defaultValue {
				t.Errorf("flag %q default = %q, want %q", tt.name, flag.DefValue, tt.defaultValue)
			}
			if flag.Usage == "" {
				t.Errorf("flag %q has no description", tt.name)
			}
		})
	}
}

func TestRootCmd_Properties(t *testing.T) {
	if rootCmd.Use != "morsekey" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "morsekey")
	}
	if rootCmd.Short == "" {
		t.Error("rootCmd.Short is empty")
	}
	if rootCmd.Long == "" {
		t.Error("rootCmd.Long is empty")
	}

	want := map[string]bool{"simulate": false, "table": false, "watch": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	setupConfig(t, "")

	output, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("Execute() with --help error = %v", err)
	}
	for _, want := range []string{"morsekey", "--source", "--listen", "simulate"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestInitConfig(t *testing.T) {
	setupConfig(t, "listen: \":6001\"")

	initConfig()

	if got := viper.GetString("listen"); got != ":6001" {
		t.Errorf("viper.GetString(listen) = %q, want :6001", got)
	}
}

func TestInitConfig_FlagsOverrideConfig(t *testing.T) {
	setupConfig(t, "source: analog")

	if err := rootCmd.PersistentFlags().Set("source", "tone"); err != nil {
		t.Fatalf("Set(source) error = %v", err)
	}
	defer func() {
		f := rootCmd.PersistentFlags().Lookup("source")
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}()

	initConfig()

	if got := viper.GetString("source"); got != "tone" {
		t.Errorf("viper.GetString(source) = %q, want tone from flag", got)
	}
}

func TestRunDecoder_InvalidConfig(t *testing.T) {
	setupConfig(t, "source: carrier-pigeon")

	_, err := execute(t)
	if err == nil {
		t.Fatal("expected error for invalid config, got nil")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config error, got: %v", err)
	}
}

func TestRunDecoder_InvalidTiming(t *testing.T) {
	setupConfig(t, "dot_ceiling: 400ms")

	_, err := execute(t)
	if err == nil {
		t.Fatal("expected error for dot ceiling above dash ceiling, got nil")
	}
	if !strings.Contains(err.Error(), "dash ceiling") {
		t.Errorf("expected timing error, got: %v", err)
	}
}

func TestRunDecoder_MissingADC(t *testing.T) {
	setupConfig(t, "source: analog\nadc_path: /nonexistent/in_voltage0_raw\n")

	_, err := execute(t, "--listen", "127.0.0.1:0")
	if err == nil {
		t.Fatal("expected error for missing ADC file, got nil")
	}
	if !strings.Contains(err.Error(), "open adc") {
		t.Errorf("expected adc error, got: %v", err)
	}
}

func TestSimulateCmd_Instant(t *testing.T) {
	setupConfig(t, "")

	output, err := execute(t, "simulate", "--instant", "CQ", "de")
	if err != nil {
		t.Fatalf("simulate error = %v", err)
	}
	for _, want := range []string{
		"sent:    CQ DE",
		"morse:   -.-. --.-   -.. .",
		"decoded: CQ DE",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestSimulateCmd_InstantWithBounce(t *testing.T) {
	setupConfig(t, "")

	output, err := execute(t, "simulate", "--instant", "--bounce", "3ms", "SOS")
	if err != nil {
		t.Fatalf("simulate error = %v", err)
	}
	if !strings.Contains(output, "decoded: SOS") {
		t.Errorf("output missing decoded SOS:\n%s", output)
	}
}

func TestSimulateCmd_NothingToKey(t *testing.T) {
	setupConfig(t, "")

	if _, err := execute(t, "simulate", "--instant", "###"); err != errNothingToKey {
		t.Errorf("simulate error = %v, want %v", err, errNothingToKey)
	}
}

func TestSimulateCmd_RequiresText(t *testing.T) {
	setupConfig(t, "")

	if _, err := execute(t, "simulate"); err == nil {
		t.Error("simulate without TEXT should fail")
	}
}

func TestTableCmd(t *testing.T) {
	setupConfig(t, "")

	output, err := execute(t, "table")
	if err != nil {
		t.Fatalf("table error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if lines[0] != "A  .-" {
		t.Errorf("first line = %q, want %q", lines[0], "A  .-")
	}
	for _, want := range []string{"B  -...", "Z  --..", "0  -----", "9  ----.", "/  -..-.", "@  .--.-."} {
		if !strings.Contains(output, want+"\n") {
			t.Errorf("table missing %q", want)
		}
	}
	if strings.Index(output, "Z  ") > strings.Index(output, "0  ") {
		t.Error("letters should be listed before digits")
	}
}

func TestWatchTarget(t *testing.T) {
	tests := []struct {
		listen string
		want   string
	}{
		{"", "localhost:5000"},
		{":5000", "localhost:5000"},
		{"0.0.0.0:8080", "localhost:8080"},
		{"192.168.4.1:5000", "192.168.4.1:5000"},
	}
	for _, tt := range tests {
		t.Run(tt.listen, func(t *testing.T) {
			if got := watchTarget(tt.listen); got != tt.want {
				t.Errorf("watchTarget(%q) = %q, want %q", tt.listen, got, tt.want)
			}
		})
	}
}
