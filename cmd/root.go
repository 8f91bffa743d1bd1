// cmd/root.go
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/drumkeys/internal/audio"
	"github.com/ColonelBlimp/drumkeys/internal/config"
	"github.com/ColonelBlimp/drumkeys/internal/input"
	"github.com/ColonelBlimp/drumkeys/internal/sample"
	"github.com/ColonelBlimp/drumkeys/internal/trigger"
)

var rootCmd = &cobra.Command{
	Use:   "drumkeys",
	Short: "A low-latency console drum sampler driven by a computer keyboard",
	Long:  `drumkeys turns a keyboard into a drum pad: it grabs a keyboard device exclusively, maps key presses to samples, and mixes them in real time.`,
	RunE:  runSampler,
}

// runSampler is the main entry point that wires all components together.
func runSampler(cmd *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	listDevices, _ := cmd.Flags().GetBool("list-devices")

	library, err := sample.DiscoverKits(settings.SamplesDir, settings.SampleNames, gainsFor(settings))
	if err != nil {
		return fmt.Errorf("discover kits: %w", err)
	}
	if library.KitCount() == 0 {
		return fmt.Errorf("no kits with matching samples found under %s", settings.SamplesDir)
	}

	bank := sample.NewCell(nil)
	cycle, err := input.NewCycleState(bank, library)
	if err != nil {
		return fmt.Errorf("load initial bank: %w", err)
	}

	triggers := trigger.NewChannel()

	audioConfig := audio.DefaultConfig()
	audioConfig.MaxVoices = settings.MaxVoices
	audioConfig.MasterVolume = settings.MasterVolume

	engine := audio.New(audioConfig, triggers, bank)
	if err := engine.Init(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing audio engine: %v\n", err)
		}
	}()

	if listDevices {
		devices, err := engine.ListDevices()
		if err != nil {
			return fmt.Errorf("list audio devices: %w", err)
		}
		fmt.Println("Available playback devices:")
		for i, dev := range devices {
			fmt.Printf("  [%d] %s\n", i, dev.Name())
		}
		return nil
	}

	if err := engine.Start(); err != nil {
		return fmt.Errorf("start audio engine: %w", err)
	}
	defer func() {
		if err := engine.Stop(); err != nil && err != audio.ErrNotRunning {
			fmt.Fprintf(os.Stderr, "error stopping audio engine: %v\n", err)
		}
	}()

	device, err := input.Open(settings.Device)
	if err != nil {
		return fmt.Errorf("open input device: %w", err)
	}
	defer device.Close()

	if err := device.Grab(); err != nil {
		return fmt.Errorf("grab input device exclusively: %w", err)
	}

	caps, err := device.Capabilities()
	if err != nil {
		return fmt.Errorf("query device capabilities: %w", err)
	}

	virtual, err := input.CreateVirtualKeyboard("drumkeys passthrough", caps)
	if err != nil {
		return fmt.Errorf("create virtual keyboard: %w", err)
	}
	defer virtual.Close()

	dispatcher := input.NewDispatcher(device, virtual, settings.KeyMap, settings.CyclingKeys, cycle, triggers)

	var shutdown atomic.Bool
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Printf("\nreceived signal %v, shutting down...\n", sig)
		shutdown.Store(true)
	}()

	fmt.Println("drumkeys ready, press Ctrl+C to stop.")
	if err := dispatcher.Run(&shutdown); err != nil {
		return fmt.Errorf("input dispatcher: %w", err)
	}

	fmt.Println("drumkeys stopped.")
	return nil
}

// gainsFor returns the per-sample-slot gain vector in the same order as
// settings.SampleNames, read back out of the resolved key map.
func gainsFor(settings *config.ResolvedConfig) []float32 {
	gains := make([]float32, len(settings.SampleNames))
	for i := range gains {
		gains[i] = 1.0
	}
	for _, binding := range settings.KeyMap {
		if binding.SampleIndex >= 0 && binding.SampleIndex < len(gains) {
			gains[binding.SampleIndex] = binding.Gain
		}
	}
	return gains
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "execution error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("device", "d", "", "evdev keyboard device path, e.g. /dev/input/event3")
	rootCmd.PersistentFlags().Float64P("volume", "v", 0.8, "master volume (0.0 to 1.0)")
	rootCmd.PersistentFlags().IntP("max-voices", "m", 32, "maximum simultaneous voices")
	rootCmd.PersistentFlags().Bool("list-devices", false, "list available playback devices and exit")

	cobra.CheckErr(viper.BindPFlag("device", rootCmd.PersistentFlags().Lookup("device")))
	cobra.CheckErr(viper.BindPFlag("master_volume", rootCmd.PersistentFlags().Lookup("volume")))
	cobra.CheckErr(viper.BindPFlag("max_voices", rootCmd.PersistentFlags().Lookup("max-voices")))
}

func initConfig() {
	if err := config.Init(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}
