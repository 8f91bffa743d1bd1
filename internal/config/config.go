// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ColonelBlimp/drumkeys/internal/input"
)

const (
	AppName       = "drumkeys"
	ConfigType    = "yaml"
	DefaultConfig = `# drumkeys configuration

# Path to the evdev keyboard device (e.g. /dev/input/event3).
# Can be overridden by the --device CLI flag.
device: ""

# Master volume multiplier (0.0 to 1.0).
master_volume: 0.8

# Maximum number of simultaneous voices.
max_voices: 32

# Root directory containing drum kit folders.
# Structure: samples_dir/<kit>/<variant>/<sample>.wav
samples_dir: "~/.local/share/drumkeys/samples"

# Keybindings mapping evdev key names to sample filenames.
bindings:
  - key: KEY_A
    sample: kick.wav
    gain: 1.0
  - key: KEY_S
    sample: snare.wav
    gain: 1.0
  - key: KEY_D
    sample: hihat.wav
    gain: 1.0

# Optional keybindings for cycling through kits and variants at runtime.
cycling_keys:
  next_kit: KEY_RIGHT
  prev_kit: KEY_LEFT
  next_variant: KEY_UP
  prev_variant: KEY_DOWN
`
)

// BindingConfig is one raw key -> sample keybinding entry from config.
// Gain is a pointer so an omitted field can be told apart from an
// explicit "gain: 0.0" (a deliberately muted binding).
type BindingConfig struct {
	Key    string   `mapstructure:"key"`
	Sample string   `mapstructure:"sample"`
	Gain   *float32 `mapstructure:"gain"`
}

// CyclingKeysConfig holds the raw, optional key names used to cycle kits
// and variants.
type CyclingKeysConfig struct {
	NextKit     string `mapstructure:"next_kit"`
	PrevKit     string `mapstructure:"prev_kit"`
	NextVariant string `mapstructure:"next_variant"`
	PrevVariant string `mapstructure:"prev_variant"`
}

// Settings is the raw, unresolved configuration document.
type Settings struct {
	Device       string              `mapstructure:"device"`
	MasterVolume float32             `mapstructure:"master_volume"`
	MaxVoices    int                 `mapstructure:"max_voices"`
	SamplesDir   string              `mapstructure:"samples_dir"`
	Bindings     []BindingConfig   `mapstructure:"bindings"`
	CyclingKeys  CyclingKeysConfig `mapstructure:"cycling_keys"`
}

// ResolvedConfig is Settings after key names have been resolved to codes,
// sample names deduplicated, and scalar parameters brought into range
// (volume and gains clamped, an out-of-range voice count reset to 32).
type ResolvedConfig struct {
	Device       string
	MasterVolume float32
	MaxVoices    int
	SamplesDir   string
	SampleNames  []string
	KeyMap       input.KeyMap
	CyclingKeys  input.CyclingKeys
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/drumkeys/
func Init() error {
	viper.SetDefault("device", "")
	viper.SetDefault("master_volume", 0.8)
	viper.SetDefault("max_voices", 32)
	viper.SetDefault("samples_dir", "~/.local/share/drumkeys/samples")

	viper.SetConfigType(ConfigType)
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

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

// Get unmarshals the current Viper state and resolves it into a
// ResolvedConfig ready for use by the rest of the program.
func Get() (*ResolvedConfig, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	resolved, err := s.Resolve()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return resolved, nil
}

// expandTilde expands a leading "~" or "~/" to the user's home directory.
func expandTilde(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func clampFloat(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Resolve validates s and resolves key names to evdev codes, deduplicating
// sample filenames into load order. Soft violations are logged and
// corrected: an out-of-range gain or volume is clamped, and a voice count
// outside [1,255] is reset to 32. Structural problems
// (missing bindings, unknown key names, a cycling/binding collision, a
// samples directory that does not exist) are returned as errors.
func (s *Settings) Resolve() (*ResolvedConfig, error) {
	masterVolume := clampFloat(s.MasterVolume, 0.0, 1.0)
	if masterVolume != s.MasterVolume {
		log.Printf("config: master_volume %v clamped to %v", s.MasterVolume, masterVolume)
	}

	maxVoices := s.MaxVoices
	if maxVoices < 1 || maxVoices > 255 {
		log.Printf("config: max_voices %d out of range [1,255], defaulting to 32", maxVoices)
		maxVoices = 32
	}

	samplesDir := expandTilde(s.SamplesDir)
	info, err := os.Stat(samplesDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("samples_dir does not exist or is not a directory: %s", samplesDir)
	}

	if len(s.Bindings) == 0 {
		return nil, errors.New("no keybindings defined in config")
	}

	var sampleNames []string
	sampleIndex := make(map[string]int)
	keyMap := make(input.KeyMap)

	for _, b := range s.Bindings {
		code, err := input.ParseKeyName(b.Key)
		if err != nil {
			return nil, err
		}

		idx, ok := sampleIndex[b.Sample]
		if !ok {
			idx = len(sampleNames)
			sampleNames = append(sampleNames, b.Sample)
			sampleIndex[b.Sample] = idx
		}

		gain := float32(1.0)
		if b.Gain != nil {
			gain = *b.Gain
		}
		clamped := clampFloat(gain, 0.0, 1.0)
		if clamped != gain {
			log.Printf("config: gain for key %s clamped from %v to %v", b.Key, gain, clamped)
		}

		if _, exists := keyMap[code]; exists {
			log.Printf("config: duplicate keybinding for %s, overwriting previous binding", b.Key)
		}
		keyMap[code] = input.Binding{SampleIndex: idx, Gain: clamped}
	}

	cycling, err := resolveCyclingKeys(s.CyclingKeys)
	if err != nil {
		return nil, err
	}
	if err := checkCyclingConflicts(cycling, keyMap); err != nil {
		return nil, err
	}

	device := s.Device
	if device != "" {
		device = expandTilde(device)
	}

	log.Printf("config: %d bindings, %d unique samples, master_volume=%v, max_voices=%d",
		len(keyMap), len(sampleNames), masterVolume, maxVoices)

	return &ResolvedConfig{
		Device:       device,
		MasterVolume: masterVolume,
		MaxVoices:    maxVoices,
		SamplesDir:   samplesDir,
		SampleNames:  sampleNames,
		KeyMap:       keyMap,
		CyclingKeys:  cycling,
	}, nil
}

func resolveOptionalKey(name string) (*uint16, error) {
	if name == "" {
		return nil, nil
	}
	code, err := input.ParseKeyName(name)
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func resolveCyclingKeys(c CyclingKeysConfig) (input.CyclingKeys, error) {
	var resolved input.CyclingKeys
	var err error

	if resolved.NextKit, err = resolveOptionalKey(c.NextKit); err != nil {
		return resolved, err
	}
	if resolved.PrevKit, err = resolveOptionalKey(c.PrevKit); err != nil {
		return resolved, err
	}
	if resolved.NextVariant, err = resolveOptionalKey(c.NextVariant); err != nil {
		return resolved, err
	}
	if resolved.PrevVariant, err = resolveOptionalKey(c.PrevVariant); err != nil {
		return resolved, err
	}
	return resolved, nil
}

func checkCyclingConflicts(cycling input.CyclingKeys, keyMap input.KeyMap) error {
	named := []struct {
		code *uint16
		name string
	}{
		{cycling.NextKit, "next_kit"},
		{cycling.PrevKit, "prev_kit"},
		{cycling.NextVariant, "next_variant"},
		{cycling.PrevVariant, "prev_variant"},
	}
	for _, n := range named {
		if n.code == nil {
			continue
		}
		if _, exists := keyMap[*n.code]; exists {
			return fmt.Errorf("cycling key %q conflicts with a sample keybinding, use a different key", n.name)
		}
	}
	return nil
}
