package search

import (
	"time"

	"github.com/go-rod/rod"

	"github.com/serpdriver/serpdriver/internal/logger"
)

// Option is a functional option for configuring the Controller.
type Option func(*Controller) error

// WithLimit sets the maximum results per query.
func WithLimit(n int) Option {
	return func(c *Controller) error {
		if n < 1 {
			n = 1
		}
		c.config.Limit = n
		return nil
	}
}

// WithTimeout sets the overall timeout for one search run.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Controller) error {
		c.config.Timeout = timeout
		return nil
	}
}

// WithLocale sets the locale presented to the site.
func WithLocale(locale string) Option {
	return func(c *Controller) error {
		c.config.Locale = locale
		return nil
	}
}

// WithGoogleURL overrides the Google endpoint.
func WithGoogleURL(url string) Option {
	return func(c *Controller) error {
		if url != "" {
			c.config.GoogleURL = url
		}
		return nil
	}
}

// WithHeadless enables/disables headless mode.
func WithHeadless(headless bool) Option {
	return func(c *Controller) error {
		c.config.Headless = headless
		return nil
	}
}

// WithDebug enables debug mode: the browser runs visible, stays open after
// the run, and logging is verbose.
func WithDebug(debug bool) Option {
	return func(c *Controller) error {
		c.config.Debug = debug
		if debug {
			c.logger.SetLevel(logger.DebugLevel)
		}
		return nil
	}
}

// WithNoSaveState disables session persistence for this run.
func WithNoSaveState(noSave bool) Option {
	return func(c *Controller) error {
		c.config.NoSaveState = noSave
		return nil
	}
}

// WithStatePath sets the state file path. The fingerprint sidecar sits
// next to it.
func WithStatePath(path string) Option {
	return func(c *Controller) error {
		c.config.StatePath = path
		return nil
	}
}

// WithBrowserBin overrides the Chrome binary.
func WithBrowserBin(bin string) Option {
	return func(c *Controller) error {
		c.config.BrowserBin = bin
		return nil
	}
}

// WithBrowser supplies an already connected Rod browser. Supplied browsers
// are never closed by the controller.
func WithBrowser(b *rod.Browser) Option {
	return func(c *Controller) error {
		c.supplied = b
		return nil
	}
}

// WithHistory enables/disables run history recording.
func WithHistory(enabled bool) Option {
	return func(c *Controller) error {
		c.config.HistoryEnabled = enabled
		return nil
	}
}

// WithStaggerInterval sets the minimum delay between query starts in
// multi-query runs.
func WithStaggerInterval(d time.Duration) Option {
	return func(c *Controller) error {
		if d > 0 {
			c.config.StaggerInterval = d
		}
		return nil
	}
}

// WithLogLevel sets the log level by name.
func WithLogLevel(level string) Option {
	return func(c *Controller) error {
		if level != "" {
			c.config.LogLevel = level
		}
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) error {
		c.logger = l
		return nil
	}
}

// WithConfig replaces the entire configuration.
func WithConfig(config *Config) Option {
	return func(c *Controller) error {
		if err := config.Validate(); err != nil {
			return err
		}
		c.config = config
		return nil
	}
}
