package commands

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/bryanchriswhite/snapmaster/internal/capture"
	"github.com/bryanchriswhite/snapmaster/internal/config"
	"github.com/bryanchriswhite/snapmaster/internal/logger"
	"github.com/bryanchriswhite/snapmaster/internal/memory"
	"github.com/bryanchriswhite/snapmaster/internal/notify"
	"github.com/bryanchriswhite/snapmaster/internal/screenshot"
	"github.com/bryanchriswhite/snapmaster/internal/selector"
	"github.com/bryanchriswhite/snapmaster/internal/window"
)

// app holds the wired application graph shared by the commands
type app struct {
	cfg      *config.Manager
	backend  window.Backend
	detector *window.Detector
	screen   *capture.DisplayScreen
	chain    *capture.Chain
	shots    *screenshot.Manager
	mem      *memory.Manager
	notifier *notify.Notifier
}

func buildApp() (*app, error) {
	cfg, err := config.NewManager(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	backend, err := window.NewBackend()
	if err != nil {
		return nil, fmt.Errorf("no window detection backend available: %w", err)
	}
	detector := window.NewDetector(backend)

	screen, err := capture.NewDisplayScreen()
	if err != nil {
		backend.Close()
		return nil, err
	}
	chain := capture.NewDefaultChain(screen)

	ms := cfg.GetMemorySettings()
	var mem *memory.Manager
	if ms.AutoCleanup {
		mem = memory.NewManager(float64(ms.ThresholdMB), time.Duration(ms.CheckIntervalSeconds)*time.Second)
		mem.AddCleanupCallback(detector.ClearHistory)
	}

	sel := selector.NewSelector(screen)
	var shots *screenshot.Manager
	if mem != nil {
		shots = screenshot.NewManager(detector, chain, screen, sel, cfg, mem)
	} else {
		shots = screenshot.NewManager(detector, chain, screen, sel, cfg, nil)
	}

	notifier, err := notify.New()
	if err != nil {
		logger.Get().Debug().Err(err).Msg("Desktop notifications unavailable")
	}
	shots.SetCompletionCallback(notifier.Saved)
	shots.SetErrorCallback(notifier.Failed)

	return &app{
		cfg:      cfg,
		backend:  backend,
		detector: detector,
		screen:   screen,
		chain:    chain,
		shots:    shots,
		mem:      mem,
		notifier: notifier,
	}, nil
}

func (a *app) close() {
	if a.mem != nil {
		a.mem.Stop()
	}
	a.detector.StopMonitoring()
	a.backend.Close()
	a.notifier.Close()
}
