package search

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"golang.org/x/time/rate"

	"github.com/serpdriver/serpdriver/internal/browser"
	serrors "github.com/serpdriver/serpdriver/internal/errors"
	"github.com/serpdriver/serpdriver/internal/extract"
)

// StatePathForQuery derives the per-query state path used by multi-query
// runs, so concurrent sessions never fight over one sidecar.
// "state.json" with index 0 becomes "state-1.json".
func StatePathForQuery(base string, idx int) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + strconv.Itoa(idx+1) + ext
}

// MultiSearch runs all queries concurrently over one shared browser, each
// in its own incognito context with its own session state. Responses come
// back in input order; per-query failures are embedded as diagnostic
// responses. The returned error is non-nil only when no query could run
// at all.
func (c *Controller) MultiSearch(ctx context.Context, queries []string) ([]*Response, error) {
	if len(queries) == 0 {
		return nil, serrors.New(serrors.State, "", "multi_search", "no queries provided", nil)
	}

	shared := c.supplied
	var owned *browser.Browser
	if shared == nil {
		b, err := browser.Launch(browser.Config{
			Headless: c.config.Headless,
			Bin:      c.config.BrowserBin,
		}, c.logger)
		if err != nil {
			return nil, serrors.NewBrowserError("", "launch", err)
		}
		owned = b
		shared = b.Rod()
	}
	defer func() {
		if owned != nil && !c.config.Debug {
			if err := owned.Close(); err != nil {
				c.logger.Warnf("Failed to close shared browser: %v", err)
			}
		}
	}()

	c.logger.Infof("Running %d queries over shared browser", len(queries))

	run := func(idx int, q string) *Response {
		sub := c.forQuery(idx, shared)
		resp, err := sub.Search(ctx, q)
		if resp == nil {
			if err == nil {
				err = serrors.New(serrors.Unknown, q, "multi_search", "search returned nothing", nil)
			}
			resp = failureResponse(q, err, 0, 0)
		}
		return resp
	}
	return c.dispatch(ctx, queries, run), nil
}

// dispatch fans the queries out with staggered starts and collects their
// responses in input order. Simultaneous search bursts from one IP are an
// easy automation signal, hence the limiter. Cancellation mid-stagger fills
// every remaining slot with a diagnostic response.
func (c *Controller) dispatch(ctx context.Context, queries []string, run func(int, string) *Response) []*Response {
	limiter := rate.NewLimiter(rate.Every(c.config.StaggerInterval), 1)

	responses := make([]*Response, len(queries))
	var wg sync.WaitGroup

	for i, query := range queries {
		if err := limiter.Wait(ctx); err != nil {
			for j := i; j < len(queries); j++ {
				cerr := serrors.NewCancelledError(queries[j], "multi_search")
				responses[j] = failureResponse(queries[j], cerr, 0, 0)
			}
			break
		}

		wg.Add(1)
		go func(idx int, q string) {
			defer wg.Done()
			responses[idx] = run(idx, q)
		}(i, query)
	}

	wg.Wait()
	return responses
}

// forQuery builds a derived controller bound to the shared browser with an
// indexed state path. Extraction state is per-query, everything else is
// shared.
func (c *Controller) forQuery(idx int, shared *rod.Browser) *Controller {
	cfg := *c.config
	cfg.StatePath = StatePathForQuery(c.config.StatePath, idx)

	return &Controller{
		config:    &cfg,
		env:       c.env,
		logger:    c.logger,
		store:     c.store,
		extractor: extract.New(c.logger),
		supplied:  shared,
	}
}
