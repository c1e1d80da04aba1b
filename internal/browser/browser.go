// Package browser wraps Rod browser lifecycle and page preparation for
// search sessions, including identity emulation and anti-detection setup.
package browser

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/serpdriver/serpdriver/internal/logger"
)

// Config defines how a browser gets launched. Timeouts are not set here;
// each page carries its own context.
type Config struct {
	Headless bool   `json:"headless"`
	Bin      string `json:"bin,omitempty"`
}

// Browser wraps a Rod browser with ownership tracking. Supplied browsers
// are never closed by this package; launched ones are.
type Browser struct {
	rod      *rod.Browser
	log      *logger.Logger
	headless bool
	owned    bool
}

// Launch starts a Chrome instance and connects to it. The returned browser
// is owned and must be closed by the caller via Close.
func Launch(cfg Config, log *logger.Logger) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-infobars")

	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	log.Event(logger.DebugLevel).Bool("headless", cfg.Headless).Str("bin", cfg.Bin).Msg("Browser launched")

	return &Browser{
		rod:      b,
		log:      log.WithComponent("browser"),
		headless: cfg.Headless,
		owned:    true,
	}, nil
}

// Wrap adopts an externally supplied Rod browser without taking ownership.
// Close becomes a no-op; the supplier keeps responsibility for shutdown.
func Wrap(b *rod.Browser, headless bool, log *logger.Logger) *Browser {
	return &Browser{
		rod:      b,
		log:      log.WithComponent("browser"),
		headless: headless,
		owned:    false,
	}
}

// Rod exposes the underlying Rod browser.
func (b *Browser) Rod() *rod.Browser {
	return b.rod
}

// Headless reports the mode the browser was launched in.
func (b *Browser) Headless() bool {
	return b.headless
}

// Owned reports whether this wrapper launched the browser itself.
func (b *Browser) Owned() bool {
	return b.owned
}

// Close shuts down the browser if owned. For wrapped browsers it does
// nothing and returns nil.
func (b *Browser) Close() error {
	if !b.owned {
		return nil
	}
	return b.rod.Close()
}
