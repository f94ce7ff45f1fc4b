package capture

import (
	"image"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/snapmaster/internal/logger"
	"github.com/bryanchriswhite/snapmaster/internal/window"
)

// RegionStrategy grabs the window's screen rectangle, after frame
// correction and validation. Occluding windows end up in the capture,
// which is why it sits below the drawable-based strategies.
type RegionStrategy struct {
	screen Screen
}

// NewRegionStrategy creates a region-grab strategy over the screen
func NewRegionStrategy(screen Screen) *RegionStrategy {
	return &RegionStrategy{screen: screen}
}

// Name identifies the strategy
func (s *RegionStrategy) Name() string {
	return "region"
}

// Capture grabs the corrected window rectangle from the screen
func (s *RegionStrategy) Capture(info *window.Info) (*image.RGBA, error) {
	bounds := s.screen.Bounds()
	if err := validateRect(info.Rect, bounds); err != nil {
		return nil, err
	}
	return s.screen.Region(correctedRegion(info, bounds))
}

// Chain runs window-capture strategies in order until one yields a
// valid image, falling back to a fullscreen grab when none do.
type Chain struct {
	strategies []Strategy
	screen     Screen
	log        *zerolog.Logger
}

// NewChain builds a chain over the given strategies. Order matters:
// earlier strategies are preferred.
func NewChain(screen Screen, strategies ...Strategy) *Chain {
	return &Chain{
		strategies: strategies,
		screen:     screen,
		log:        logger.WithComponent("capture-chain"),
	}
}

// NewDefaultChain assembles the standard strategy order: composite,
// then direct drawable read, then region grab. The X-backed strategies
// are skipped when no X connection can be made.
func NewDefaultChain(screen Screen) *Chain {
	var strategies []Strategy
	if g, err := NewX11Grabber(); err == nil {
		strategies = append(strategies,
			NewCompositeStrategy(g),
			NewBackBufferStrategy(g),
		)
	} else {
		logger.WithComponent("capture-chain").Warn().
			Err(err).
			Msg("X connection unavailable, window capture uses region grabs only")
	}
	strategies = append(strategies, NewRegionStrategy(screen))
	return NewChain(screen, strategies...)
}

// CaptureWindow captures info's window. The returned method names the
// strategy that produced the image ("fullscreen-fallback" when every
// window strategy failed).
func (c *Chain) CaptureWindow(info *window.Info) (*image.RGBA, string, error) {
	for _, s := range c.strategies {
		img, err := s.Capture(info)
		if err != nil {
			c.log.Debug().
				Str("strategy", s.Name()).
				Str("app", info.Name).
				Err(err).
				Msg("Capture strategy failed")
			continue
		}
		if !validCapture(img) {
			c.log.Debug().
				Str("strategy", s.Name()).
				Str("app", info.Name).
				Msg("Capture strategy produced a blank image")
			continue
		}
		return img, s.Name(), nil
	}

	c.log.Warn().
		Str("app", info.Name).
		Msg("All window strategies failed, falling back to fullscreen")

	img, err := c.screen.FullScreen()
	if err != nil {
		return nil, "", ErrAllStrategiesFailed
	}
	return img, "fullscreen-fallback", nil
}
