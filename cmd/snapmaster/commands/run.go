package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/snapmaster/internal/api"
	"github.com/bryanchriswhite/snapmaster/internal/config"
	"github.com/bryanchriswhite/snapmaster/internal/hotkey"
	"github.com/bryanchriswhite/snapmaster/internal/logger"
	"github.com/bryanchriswhite/snapmaster/internal/screenshot"
)

const monitorInterval = 500 * time.Millisecond

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the capture daemon",
	Long: `Starts window monitoring, global hotkeys, the memory watchdog, and
the HTTP API, then waits for a signal to shut down.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("daemon")

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	a.detector.StartMonitoring(monitorInterval)
	if a.mem != nil {
		a.mem.Start()
	}

	hotkeys := bindHotkeys(a)
	if hotkeys != nil {
		defer hotkeys.Close()
	}

	server := api.NewServer(viper.GetInt("port"), a.shots, a.detector)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	log.Info().
		Str("backend", a.backend.Name()).
		Int("port", viper.GetInt("port")).
		Msg("SnapMaster running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// bindHotkeys installs the configured global hotkeys. A failure is
// logged, not fatal: the API and CLI still work without grabs.
func bindHotkeys(a *app) *hotkey.Manager {
	log := logger.WithComponent("daemon")

	hk, err := hotkey.NewManager()
	if err != nil {
		log.Warn().Err(err).Msg("Global hotkeys unavailable")
		return nil
	}

	actions := map[string]func(){
		config.ActionFullscreenCapture: func() { a.shots.CaptureFullscreen(screenshot.Options{}) },
		config.ActionWindowCapture:     func() { a.shots.CaptureActiveWindow(screenshot.Options{}) },
		config.ActionAreaCapture:       func() { a.shots.CaptureArea(screenshot.Options{}) },
		config.ActionQuickCapture:      func() { a.shots.CaptureActiveWindow(screenshot.Options{}) },
	}

	for action, fn := range actions {
		combo := a.cfg.GetHotkey(action)
		if combo == "" {
			continue
		}
		if err := hk.Bind(combo, fn); err != nil {
			log.Warn().Str("combo", combo).Err(err).Msg("Failed to bind hotkey")
		}
	}

	hk.Start()
	return hk
}
