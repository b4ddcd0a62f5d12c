// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ColonelBlimp/morsekey/internal/cw"
	"github.com/ColonelBlimp/morsekey/internal/signal"
	"github.com/spf13/viper"
)

const (
	AppName       = "morsekey"
	ConfigType    = "yaml"
	DefaultConfig = `# Morse Key Decoder Configuration

# Signal source: analog, digital, tone or simulated
source: "digital"

# Digital key (GPIO)
gpio_pin: "GPIO17"      # periph.io pin name
gpio_pull: "down"       # up, down or none
active_low: false       # true when the key pulls the pin low

# Analog key (ADC)
adc_path: "/sys/bus/iio/devices/iio:device0/in_voltage0_raw"
adc_pin: ""             # periph ADC header pin, used instead of adc_path when set
adc_low: 500            # below this the key is released (0-4095)
adc_high: 2400          # above this the key is pressed (0-4095)

# Sidetone key (sound card)
device_index: -1        # -1 for default device
sample_rate: 48000      # Audio sample rate in Hz
buffer_size: 256        # Frames per audio callback
tone_frequency: 600     # Sidetone frequency in Hz
block_size: 480         # Goertzel block size (10ms at 48kHz)
tone_low: 0.1           # Magnitude below this is key up
tone_high: 0.3          # Magnitude above this is key down
agc_enabled: false      # Normalize tone magnitude against a tracked peak
agc_decay: 0.995        # Peak decay per block
agc_attack: 0.5         # Peak attack per block
agc_floor: 0.01         # Lowest peak the AGC will track

# Timing (one unit = 100ms)
dot_ceiling: 115ms      # Presses up to this long are dots
dash_ceiling: 315ms     # Presses up to this long are dashes, longer ones are dropped
char_gap: 300ms         # Gaps longer than this end a character
word_gap: 700ms         # Gaps longer than this end a word
idle_timeout: 2s        # Silence longer than this decodes the buffer
poll_interval: 50us     # Sleep between reads, 0 to yield only

# Status server
listen: ":5000"
index_path: "web/index.html"

# MQTT (disabled when mqtt_broker is empty)
mqtt_broker: ""         # e.g. tcp://localhost:1883
mqtt_topic: "morsekey/message"
mqtt_qos: 0
mqtt_retained: true

# Output
debug: false            # Enable debug output
`
)

// Source names accepted by the source key.
const (
	SourceAnalog    = "analog"
	SourceDigital   = "digital"
	SourceTone      = "tone"
	SourceSimulated = "simulated"
)

// Settings holds all application configuration
type Settings struct {
	Source string `mapstructure:"source"`

	// Digital key
	GPIOPin   string `mapstructure:"gpio_pin"`
	GPIOPull  string `mapstructure:"gpio_pull"`
	ActiveLow bool   `mapstructure:"active_low"`

	// Analog key
	ADCPath string  `mapstructure:"adc_path"`
	ADCPin  string  `mapstructure:"adc_pin"`
	ADCLow  float64 `mapstructure:"adc_low"`
	ADCHigh float64 `mapstructure:"adc_high"`

	// Sidetone key
	DeviceIndex   int     `mapstructure:"device_index"`
	SampleRate    float64 `mapstructure:"sample_rate"`
	BufferSize    int     `mapstructure:"buffer_size"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	BlockSize     int     `mapstructure:"block_size"`
	ToneLow       float64 `mapstructure:"tone_low"`
	ToneHigh      float64 `mapstructure:"tone_high"`
	AGCEnabled    bool    `mapstructure:"agc_enabled"`
	AGCDecay      float64 `mapstructure:"agc_decay"`
	AGCAttack     float64 `mapstructure:"agc_attack"`
	AGCFloor      float64 `mapstructure:"agc_floor"`

	// Timing
	DotCeiling   time.Duration `mapstructure:"dot_ceiling"`
	DashCeiling  time.Duration `mapstructure:"dash_ceiling"`
	CharGap      time.Duration `mapstructure:"char_gap"`
	WordGap      time.Duration `mapstructure:"word_gap"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Status server
	Listen    string `mapstructure:"listen"`
	IndexPath string `mapstructure:"index_path"`

	// MQTT
	MQTTBroker   string `mapstructure:"mqtt_broker"`
	MQTTTopic    string `mapstructure:"mqtt_topic"`
	MQTTQoS      int    `mapstructure:"mqtt_qos"`
	MQTTRetained bool   `mapstructure:"mqtt_retained"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/morsekey/
func Init() error {
	setDefaults()

	// Support both config.yaml and .config.yaml
	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	// Read config file - if not found, create default in XDG config dir
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("source", SourceDigital)
	viper.SetDefault("gpio_pin", "GPIO17")
	viper.SetDefault("gpio_pull", "down")
	viper.SetDefault("active_low", false)
	viper.SetDefault("adc_path", "/sys/bus/iio/devices/iio:device0/in_voltage0_raw")
	viper.SetDefault("adc_pin", "")
	viper.SetDefault("adc_low", 500)
	viper.SetDefault("adc_high", 2400)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("buffer_size", 256)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("block_size", 480)
	viper.SetDefault("tone_low", 0.1)
	viper.SetDefault("tone_high", 0.3)
	viper.SetDefault("agc_enabled", false)
	viper.SetDefault("agc_decay", 0.995)
	viper.SetDefault("agc_attack", 0.5)
	viper.SetDefault("agc_floor", 0.01)
	viper.SetDefault("dot_ceiling", "115ms")
	viper.SetDefault("dash_ceiling", "315ms")
	viper.SetDefault("char_gap", "300ms")
	viper.SetDefault("word_gap", "700ms")
	viper.SetDefault("idle_timeout", "2s")
	viper.SetDefault("poll_interval", "50us")
	viper.SetDefault("listen", ":5000")
	viper.SetDefault("index_path", "web/index.html")
	viper.SetDefault("mqtt_broker", "")
	viper.SetDefault("mqtt_topic", "morsekey/message")
	viper.SetDefault("mqtt_qos", 0)
	viper.SetDefault("mqtt_retained", true)
	viper.SetDefault("debug", false)
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Timing returns the classifier calibration.
func (s *Settings) Timing() cw.Timing {
	return cw.Timing{
		DotCeiling:   s.DotCeiling,
		DashCeiling:  s.DashCeiling,
		CharGap:      s.CharGap,
		WordGap:      s.WordGap,
		IdleTimeout:  s.IdleTimeout,
		PollInterval: s.PollInterval,
	}
}

// ADCThresholds returns the dead zone for raw ADC samples.
func (s *Settings) ADCThresholds() signal.Thresholds {
	return signal.Thresholds{Low: s.ADCLow, High: s.ADCHigh}
}

// ToneThresholds returns the dead zone for Goertzel magnitudes.
func (s *Settings) ToneThresholds() signal.Thresholds {
	return signal.Thresholds{Low: s.ToneLow, High: s.ToneHigh}
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	switch s.Source {
	case SourceAnalog, SourceDigital, SourceTone, SourceSimulated:
	default:
		errs = append(errs, fmt.Errorf("source must be one of analog, digital, tone, simulated, got %q", s.Source))
	}

	// Timing
	if err := s.Timing().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("timing: %w", err))
	}

	// Source specific settings are only checked for the selected source
	switch s.Source {
	case SourceDigital:
		if s.GPIOPin == "" {
			errs = append(errs, errors.New("gpio_pin is required for the digital source"))
		}
		if _, err := signal.ParsePull(s.GPIOPull); err != nil {
			errs = append(errs, err)
		}
	case SourceAnalog:
		if s.ADCPath == "" && s.ADCPin == "" {
			errs = append(errs, errors.New("adc_path or adc_pin is required for the analog source"))
		}
		if s.ADCLow < 0 || s.ADCHigh > signal.MaxSample {
			errs = append(errs, fmt.Errorf("adc thresholds must be within 0..%d, got %v..%v", signal.MaxSample, s.ADCLow, s.ADCHigh))
		}
		if err := s.ADCThresholds().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("adc: %w", err))
		}
	case SourceTone:
		errs = append(errs, s.validateTone()...)
	}

	// Status server
	if s.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}

	// MQTT
	if s.MQTTBroker != "" {
		if s.MQTTTopic == "" {
			errs = append(errs, errors.New("mqtt_topic is required when mqtt_broker is set"))
		}
		if s.MQTTQoS < 0 || s.MQTTQoS > 2 {
			errs = append(errs, fmt.Errorf("mqtt_qos must be 0, 1 or 2, got %d", s.MQTTQoS))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (s *Settings) validateTone() []error {
	var errs []error

	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if err := s.ToneThresholds().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tone: %w", err))
	}
	if s.AGCEnabled {
		if s.AGCDecay <= 0 || s.AGCDecay > 1 {
			errs = append(errs, fmt.Errorf("agc_decay must be between 0.0 and 1.0, got %v", s.AGCDecay))
		}
		if s.AGCAttack <= 0 || s.AGCAttack > 1 {
			errs = append(errs, fmt.Errorf("agc_attack must be between 0.0 and 1.0, got %v", s.AGCAttack))
		}
		if s.AGCFloor <= 0 {
			errs = append(errs, fmt.Errorf("agc_floor must be positive, got %v", s.AGCFloor))
		}
	}

	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}
	return errs
}
