package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/guidoenr/retrobars/internal/app"
	"github.com/guidoenr/retrobars/internal/params"
	"github.com/guidoenr/retrobars/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var (
	configPath string
	watch      bool
	targetFPS  float64
	scale      int
	mode       string
	width      int
	height     int
	showStatus bool
	noColor    bool
	webPort    int
	profile    string
	seed       int64
	debug      bool
	logFile    string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "retrobars",
	Short: "Retro bar visualizer with glitch effects",
	Long: `retrobars animates a row of pseudo-random bars over a light grid with
scanlines, a vignette and occasional channel-shear glitches.

Hovering the window, pressing space, or POSTing to /api/excited switches
between the calm and excited palettes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if debug {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		if logFile != "" {
			config.OutputPaths = []string{logFile}
			config.ErrorOutputPaths = []string{logFile}
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runAnimation,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective visual configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		visual, err := loadVisual()
		if err != nil {
			return err
		}
		data, err := visual.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML visual config (defaults when empty)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")

	flags := rootCmd.Flags()
	flags.BoolVar(&watch, "watch", false, "Reload the config file when it changes")
	flags.Float64Var(&targetFPS, "fps", 60, "Target frames per second")
	flags.IntVar(&scale, "scale", 4, "Device pixels per terminal cell column")
	flags.StringVar(&mode, "mode", string(app.ModeTerminal), "Presenter (terminal|window|headless)")
	flags.IntVar(&width, "width", 0, "Frame width (cells in terminal mode, pixels otherwise)")
	flags.IntVar(&height, "height", 0, "Frame height (cells in terminal mode, pixels otherwise)")
	flags.BoolVar(&showStatus, "status", true, "Display status bar")
	flags.BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
	flags.IntVar(&webPort, "web-port", 0, "Serve the control API and preview on this port (0 disables)")
	flags.StringVar(&profile, "profile", "", "Append per-section frame timings to this CSV file")
	flags.Int64Var(&seed, "seed", 0, "Random seed (0 picks one from the clock)")

	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadVisual() (params.VisualConfig, error) {
	if configPath == "" {
		return params.Defaults(), nil
	}
	return params.Load(configPath)
}

func runAnimation(cmd *cobra.Command, args []string) error {
	if targetFPS <= 0 {
		return fmt.Errorf("fps must be positive (got %.2f)", targetFPS)
	}
	if scale <= 0 {
		return fmt.Errorf("scale must be positive (got %d)", scale)
	}
	m := app.Mode(mode)
	switch m {
	case app.ModeTerminal, app.ModeHeadless:
	case app.ModeWindow:
		if !app.SupportsWindow() {
			return errors.New("window mode needs a build with -tags sdl")
		}
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	visual, err := loadVisual()
	if err != nil {
		return err
	}

	w, h := width, height
	if m == app.ModeTerminal {
		if fd := int(os.Stdout.Fd()); fd >= 0 {
			if cols, rows, err := term.GetSize(fd); err == nil {
				if w <= 0 {
					w = cols
				}
				if h <= 0 {
					h = rows
				}
			}
		}
	}

	a, err := app.New(app.Config{
		Visual:        visual,
		ConfigPath:    configPath,
		Watch:         watch,
		Mode:          m,
		Width:         w,
		Height:        h,
		Scale:         scale,
		TargetFPS:     targetFPS,
		ShowStatusBar: showStatus,
		UseANSI:       !noColor,
		Snapshots:     webPort > 0,
		ProfilePath:   profile,
		Seed:          seed,
		Log:           logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("cleanup error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if webPort > 0 {
		srv := web.NewServer(a, logger.Named("web"))
		addr := net.JoinHostPort("", strconv.Itoa(webPort))
		g.Go(func() error {
			return srv.Run(gctx, addr)
		})
	}

	runErr := a.Run(gctx)
	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("runtime error: %w", runErr)
	}
	logger.Info("exiting")
	return nil
}
