package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rxdsp"
)

var (
	configPath string
	debug      bool
	tracePath  string
	modeName   string
	cwTone     float64

	iqFile    string
	audioFile string
	realtime  bool

	serialPort  string
	baudRate    int
	audioDevice string
	recordFile  string
)

var rootCmd = &cobra.Command{
	Use:          "rxdsp",
	Short:        "Receive DSP pipeline: spectrum, waterfall, S-meter, notch finder and CW decoder.",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "INI configuration file")
	pf.BoolVar(&debug, "debug", false, "Log at debug level")
	pf.StringVar(&tracePath, "trace", "", "Write CW decoder levels to this CSV file")
	pf.StringVarP(&modeName, "mode", "m", "", "Operating mode (USB, LSB, CW, CW-R, ...)")
	pf.Float64Var(&cwTone, "tone", 0, "CW tone frequency in Hz")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Feed recorded IQ and audio wav files through the pipeline",
		RunE:  func(cmd *cobra.Command, args []string) error { return run(cmd.Context(), replay) },
	}
	replayCmd.Flags().StringVar(&iqFile, "iq", "", "Stereo 16 bit IQ wav file")
	replayCmd.Flags().StringVar(&audioFile, "audio", "", "Mono 16 bit audio wav file")
	replayCmd.Flags().BoolVar(&realtime, "realtime", false, "Pace replay at the recorded rate")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "Decode CW from a sound card, following the radio over CI-V",
		RunE:  func(cmd *cobra.Command, args []string) error { return run(cmd.Context(), live) },
	}
	liveCmd.Flags().StringVarP(&serialPort, "serial", "s", "", "CI-V serial port")
	liveCmd.Flags().IntVarP(&baudRate, "baud", "b", 19200, "CI-V baud rate")
	liveCmd.Flags().StringVarP(&audioDevice, "device", "d", "", "Capture device name (substring)")
	liveCmd.Flags().StringVarP(&recordFile, "record", "r", "", "Record captured audio to this wav file")

	rootCmd.AddCommand(replayCmd, liveCmd)
}

func replay(ctx context.Context, sys *rxdsp.System) error {
	sys.IQFile = iqFile
	sys.AudioFile = audioFile
	sys.Realtime = realtime
	return sys.Replay(ctx)
}

func live(ctx context.Context, sys *rxdsp.System) error {
	sys.SerialPort = serialPort
	sys.BaudRate = baudRate
	sys.AudioDevice = audioDevice
	sys.RecordFile = recordFile
	return sys.Live(ctx)
}

func run(ctx context.Context, start func(context.Context, *rxdsp.System) error) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg, settings := rxdsp.DefaultConfig(), rxdsp.DefaultSettings()
	if configPath != "" {
		var err error
		if cfg, settings, err = rxdsp.LoadConfig(configPath); err != nil {
			return err
		}
	}
	if modeName != "" {
		mode, err := rxdsp.ParseMode(modeName)
		if err != nil {
			return err
		}
		settings.Mode = mode
	}
	if cwTone > 0 {
		settings.CWTone = cwTone
	}

	sys := rxdsp.NewSystem(cfg, settings, log, os.Stdout)
	sys.TraceFile = tracePath
	defer func() {
		if err := sys.Close(); err != nil {
			log.Error("closing trace failed", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := start(ctx, sys)
	fmt.Println()
	return err
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
