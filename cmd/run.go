package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bnema/vmshm/internal/audio"
	"github.com/bnema/vmshm/internal/bridge"
	"github.com/bnema/vmshm/internal/config"
	"github.com/bnema/vmshm/internal/host"
	"github.com/bnema/vmshm/internal/input"
	"github.com/bnema/vmshm/internal/ipc"
	"github.com/bnema/vmshm/internal/logger"
	"github.com/bnema/vmshm/internal/ui"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	runConnPath    string
	runConsoles    int
	runWidth       int
	runHeight      int
	runAccelerated bool
	runTone        float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bridge the guest displays to a compositor",
	Long: `Connect to the compositor socket, attach one segment per graphical console
and keep the segments refreshed until the guest shuts down or the process
is interrupted. SIGUSR1 pauses and resumes the guest.`,
	RunE: runBridge,
}

func init() {
	runCmd.Flags().StringVar(&runConnPath, "connpath", "", "Compositor socket path")
	runCmd.Flags().IntVar(&runConsoles, "consoles", 1, "Number of graphical consoles")
	runCmd.Flags().IntVar(&runWidth, "width", 640, "Console width in pixels")
	runCmd.Flags().IntVar(&runHeight, "height", 480, "Console height in pixels")
	runCmd.Flags().BoolVar(&runAccelerated, "accelerated", false, "Request GPU accelerated segments")
	runCmd.Flags().Float64Var(&runTone, "tone", 0, "Play a test tone of this frequency in Hz")

	// Bind flags to viper
	viper.BindPFlag("transport.connpath", runCmd.Flags().Lookup("connpath"))
	viper.BindPFlag("bridge.accelerated", runCmd.Flags().Lookup("accelerated"))
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if cfg.Transport.ConnPath == "" {
		return errors.New("no compositor socket configured: use --connpath, transport.connpath or VMSHM_CONNPATH")
	}
	if runConsoles < 1 {
		return fmt.Errorf("at least one console is required, got %d", runConsoles)
	}

	inj, err := input.NewInjector(cfg.Input.Backend, cfg.Input.UinputPath, cfg.Bridge.InstanceName)
	if err != nil {
		return fmt.Errorf("failed to create input injector: %w", err)
	}
	defer inj.Close()

	machine := host.NewMachine()
	consoles := host.NewConsoles(runConsoles, runWidth, runHeight)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := bridge.OptionsFromConfig(cfg.Bridge)
	transport := ipc.NewTransport(cfg.Transport.ConnPath, cfg.Transport.BufferDir)
	reg, err := bridge.Start(ctx, transport, bridge.Host{
		Consoles: consoles,
		Input:    inj,
		Machine:  machine,
		Notifier: machine,
	}, opts)
	if err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logger.Warn("Failed to close segments cleanly", "error", err)
		}
	}()

	watchConfig(reg)
	fmt.Println(bridgeBanner(reg, cfg))

	var tone *audio.Tone
	if runTone > 0 {
		tone = audio.NewTone(runTone, 0.2)
	}
	voice := audio.NewOut(audio.FromPrimary(reg.Primary))

	pauseCh := make(chan os.Signal, 1)
	signal.Notify(pauseCh, syscall.SIGUSR1)
	defer signal.Stop(pauseCh)

	interval := opts.RefreshInterval
	if interval <= 0 {
		interval = config.DefaultConfig.Bridge.RefreshInterval()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down...")
			machine.RequestShutdown(bridge.CauseHostUI)
			return nil
		case <-machine.Done():
			cause, _ := machine.ShutdownCause()
			logger.Info("Guest stopped", "cause", cause)
			return nil
		case <-pauseCh:
			machine.TogglePause()
		case <-ticker.C:
			reg.Refresh()
			if tone != nil && machine.IsRunning() {
				tone.Feed(voice)
			}
		}
	}
}

// watchConfig re-announces titles when the config file changes
func watchConfig(reg *bridge.Registry) {
	path := config.ConfigFileUsed()
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed", "file", e.Name, "op", e.Op.String())
		if err := config.Reload(); err != nil {
			logger.Warn("Failed to reload config", "error", err)
			return
		}
		cfg := config.Get()
		if cfg.Logging.Level != "" {
			logger.SetLevel(cfg.Logging.Level)
		}
		reg.SetInstanceName(cfg.Bridge.InstanceName)
	})
	viper.WatchConfig()
}

func bridgeBanner(reg *bridge.Registry, cfg *config.Config) string {
	rows := make([]ui.DisplayRow, 0, reg.Len())
	for _, b := range reg.Bridges() {
		row := ui.DisplayRow{
			Index:   b.Index(),
			Mode:    b.Mode().String(),
			Primary: b.IsPrimary(),
		}
		if seg := b.Segment(); seg != nil {
			row.Width, row.Height, row.Mapped = seg.Width(), seg.Height(), seg.Mapped()
		}
		rows = append(rows, row)
	}

	var out strings.Builder
	out.WriteString(ui.FormatAppHeader("BRIDGE", fmt.Sprintf("%s on %s", cfg.Bridge.InstanceName, cfg.Transport.ConnPath)))
	out.WriteString("\n\n")
	out.WriteString(ui.DisplayTable(rows))
	out.WriteString("\n")
	out.WriteString(ui.FormatNotice(len(rows) > 0, fmt.Sprintf("Bridging %d display(s)", len(rows))))
	out.WriteString("\n")
	out.WriteString(ui.FormatDetail("Input backend", cfg.Input.Backend))
	out.WriteString("\n\n")
	out.WriteString(ui.BoxStyle.Render(strings.Join([]string{
		ui.InfoStyle.Render("Controls:"),
		"  " + ui.FormatControl("SIGUSR1", "Pause or resume the guest"),
		"  " + ui.FormatControl("Ctrl+C", "Shut down"),
	}, "\n")))
	return out.String()
}
