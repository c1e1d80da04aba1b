package search

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"github.com/serpdriver/serpdriver/internal/browser"
	"github.com/serpdriver/serpdriver/internal/captcha"
	serrors "github.com/serpdriver/serpdriver/internal/errors"
	"github.com/serpdriver/serpdriver/internal/extract"
	"github.com/serpdriver/serpdriver/internal/fingerprint"
	"github.com/serpdriver/serpdriver/internal/history"
	"github.com/serpdriver/serpdriver/internal/logger"
	"github.com/serpdriver/serpdriver/internal/session"
)

// Selector chains tried in order. Google serves different markup to
// different sessions, so none of these is reliable on its own.
var (
	inputSelectors = []string{
		"textarea[name='q']",
		"input[name='q']",
		"textarea[title='Search']",
		"[role='combobox']",
		"textarea[aria-label='Search']",
		"textarea",
	}
	resultSelectors = []string{"#search", "#rso", "#main"}
)

// googleDomains are the endpoints rotated across first runs. Once a domain
// is persisted for a state path it sticks, keeping the session consistent.
var googleDomains = []string{
	"https://www.google.com",
	"https://www.google.co.uk",
	"https://www.google.ca",
	"https://www.google.de",
	"https://www.google.com.au",
}

// errRetryVisible signals the outer recovery loop to relaunch the browser
// in visible mode. Never surfaced to callers.
var errRetryVisible = stderrors.New("retry in visible mode")

const selectorTimeout = 3 * time.Second

// Controller runs searches through one logical browser session, keeping
// the presented identity stable across runs.
type Controller struct {
	config    *Config
	env       Environment
	logger    *logger.Logger
	store     *session.Store
	extractor *extract.Extractor
	supplied  *rod.Browser
}

// New creates a controller with the given options applied over defaults.
func New(opts ...Option) (*Controller, error) {
	c := &Controller{
		config: DefaultConfig(),
		env:    LoadEnvironment(),
		logger: logger.NewDefault().WithComponent("search"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	if level, err := logger.ParseLevel(c.config.LogLevel); err == nil && !c.config.Debug {
		c.logger.SetLevel(level)
	}
	if c.config.Debug {
		// Debug means a visible browser kept open after the run.
		c.config.Headless = false
	}
	if c.config.StatePath == "" {
		c.config.StatePath = filepath.Join(c.env.StorageDir, "state.json")
	}
	if c.config.BrowserBin == "" {
		c.config.BrowserBin = c.env.BrowserBin
	}

	c.store = session.NewStore(c.logger)
	c.extractor = extract.New(c.logger)

	return c, nil
}

// Config returns a copy of the effective configuration.
func (c *Controller) Config() Config {
	return *c.config
}

// resolveEndpoint picks the search domain for this run. An explicit
// configuration override always wins; otherwise the domain persisted with
// the session is reused so the presented identity stays consistent, and a
// brand new session draws one from the fixed rotation.
func (c *Controller) resolveEndpoint(state *session.State) string {
	if c.config.GoogleURL != "" && c.config.GoogleURL != DefaultGoogleURL {
		return c.config.GoogleURL
	}
	if state.GoogleURL != "" {
		return state.GoogleURL
	}
	return googleDomains[rand.Intn(len(googleDomains))]
}

// Search runs one query end to end: identity setup, navigation, challenge
// recovery, extraction, and persistence. On failure it returns both an
// error and a diagnostic response carrying FailureTitle, so callers
// consuming only responses still see what happened.
func (c *Controller) Search(ctx context.Context, query string) (*Response, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, serrors.New(serrors.State, "", "validate", "query must not be empty", nil)
	}

	log := c.logger.WithQuery(query)
	policy := captcha.NewPolicy()

	state := c.store.Load(c.config.StatePath)
	if state.Fingerprint.DeviceName == "" {
		state.Fingerprint = fingerprint.Synthesize(fingerprint.CurrentHostSignals(), c.config.Locale)
		log.Debugf("Synthesized identity: %s, %s, %s", state.Fingerprint.DeviceName, state.Fingerprint.TimezoneID, state.Fingerprint.Locale)
	} else if c.config.Locale != "" {
		state.Fingerprint.Locale = c.config.Locale
	}

	device, ok := fingerprint.DeviceByName(state.Fingerprint.DeviceName)
	if !ok {
		device = fingerprint.RandomDevice()
		state.Fingerprint.DeviceName = device.Name
	}

	state.GoogleURL = c.resolveEndpoint(&state)
	log.Debugf("Search endpoint: %s", state.GoogleURL)

	b, err := c.obtainBrowser(c.config.Headless, log)
	if err != nil {
		ferr := serrors.NewBrowserError(query, "launch", err)
		return c.fail(query, ferr, start, policy, &state, log), ferr
	}

	var resp *Response
	var runErr error
	for {
		resp, runErr = c.attempt(ctx, b, query, &state, device, policy, log)
		if runErr == nil || !stderrors.Is(runErr, errRetryVisible) {
			break
		}

		c.releaseBrowser(b)
		b, err = browser.Launch(browser.Config{Headless: false, Bin: c.config.BrowserBin}, log)
		if err != nil {
			runErr = serrors.NewBrowserError(query, "launch_visible", err)
			b = nil
			break
		}
		log.SearchEvent(query, "relaunch_visible", policy.Attempts())
	}
	c.releaseBrowser(b)

	if runErr != nil {
		ferr := serrors.Categorize(runErr, query)
		return c.fail(query, ferr, start, policy, &state, log), ferr
	}

	resp.Duration = time.Since(start)
	resp.Recoveries = policy.Attempts()
	c.record(query, len(resp.Results), resp.Strategy, resp.Duration, nil)
	return resp, nil
}

// attempt runs one pass of the search flow against the given browser.
// Challenge checkpoints sit after navigation, after query submission, and
// before extraction; headless challenge hits bubble up as errRetryVisible.
func (c *Controller) attempt(ctx context.Context, b *browser.Browser, query string, state *session.State, device fingerprint.Device, policy *captcha.Policy, log *logger.Logger) (*Response, error) {
	// Visible runs get extra headroom so a human can solve a challenge.
	timeout := c.config.Timeout
	if !b.Headless() {
		timeout = 2 * c.config.Timeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := b.NewPage(actx, state.Fingerprint, device, session.CookieParams(state.Cookies))
	if err != nil {
		return nil, serrors.NewBrowserError(query, "new_page", err)
	}
	defer func() {
		if !c.config.Debug {
			page.Close()
		}
	}()

	log.SearchEvent(query, "navigate", policy.Attempts())
	if err := page.Navigate(state.GoogleURL); err != nil {
		return nil, serrors.NewNavigationError(query, state.GoogleURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, serrors.Categorize(err, query)
	}

	if err := c.guardChallenge(ctx, page, b, query, policy, log); err != nil {
		return nil, err
	}

	input, err := findFirst(page, inputSelectors)
	if err != nil {
		return nil, serrors.NewNoInputError(query)
	}

	log.SearchEvent(query, "submit", policy.Attempts())
	if err := browser.TypeHumanized(page, input, query); err != nil {
		return nil, serrors.NewBrowserError(query, "submit", err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, serrors.Categorize(err, query)
	}
	wait := page.Timeout(10 * time.Second).WaitRequestIdle(time.Second, nil, nil, nil)
	wait()

	if err := c.guardChallenge(ctx, page, b, query, policy, log); err != nil {
		return nil, err
	}

	if _, err := findFirst(page, resultSelectors); err != nil {
		// A late challenge redirect also removes the results container;
		// tell them apart before reporting no results.
		if gerr := c.guardChallenge(ctx, page, b, query, policy, log); gerr != nil {
			return nil, gerr
		}
		return nil, serrors.NewNoResultsError(query)
	}

	if err := c.guardChallenge(ctx, page, b, query, policy, log); err != nil {
		return nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, serrors.NewBrowserError(query, "read_html", err)
	}

	pageBase := pageURL(page)
	if pageBase == "" {
		pageBase = state.GoogleURL
	}
	results, strat, err := c.extractor.Extract(html, pageBase, c.config.Limit)
	if err != nil {
		return nil, serrors.New(serrors.Unknown, query, "extract", "failed to parse results", err)
	}
	log.ExtractEvent(query, strat, len(results))

	if cookies, cerr := browser.CaptureCookies(page); cerr == nil {
		state.Cookies = cookies
	} else {
		log.Warnf("Failed to capture cookies: %v", cerr)
	}
	if err := c.store.Save(c.config.StatePath, *state, c.config.NoSaveState); err != nil {
		log.Warnf("Failed to persist session state: %v", err)
	}

	return &Response{
		Query:    query,
		Results:  fromExtracted(results),
		Strategy: strat,
	}, nil
}

// guardChallenge checks the current URL for a challenge page and consumes
// one recovery attempt when found. In visible mode it blocks until a human
// clears the challenge or the extended deadline passes.
func (c *Controller) guardChallenge(ctx context.Context, page *rod.Page, b *browser.Browser, query string, policy *captcha.Policy, log *logger.Logger) error {
	u := pageURL(page)
	if !captcha.IsChallenge(u) {
		return nil
	}
	log.CaptchaEvent(u, b.Headless(), policy.Attempts()+1)

	switch policy.Next(b.Headless()) {
	case captcha.ActionRetryVisible:
		return errRetryVisible
	case captcha.ActionWaitForHuman:
		return c.waitForHuman(ctx, page, query, log)
	default:
		return serrors.New(serrors.Captcha, query, "captcha_recovery", fmt.Sprintf("challenge unresolved after %d recovery attempts", policy.Attempts()), nil)
	}
}

// waitForHuman polls the page until the challenge URL clears. Bounded at
// twice the run timeout; humans are slow but not unbounded.
func (c *Controller) waitForHuman(ctx context.Context, page *rod.Page, query string, log *logger.Logger) error {
	log.Info("Challenge displayed, waiting for manual solve in the browser window")

	deadline := time.Now().Add(2 * c.config.Timeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return serrors.NewCancelledError(query, "captcha_wait")
		case <-time.After(2 * time.Second):
		}
		if challengeCleared(pageURL(page)) {
			log.Info("Challenge cleared, resuming")
			// Let the post-challenge redirect settle.
			_ = page.WaitLoad()
			return nil
		}
	}
	return serrors.NewTimeoutError(query, "captcha_wait", nil)
}

// obtainBrowser wraps the supplied browser when one was provided, otherwise
// launches an owned instance.
func (c *Controller) obtainBrowser(headless bool, log *logger.Logger) (*browser.Browser, error) {
	if c.supplied != nil {
		return browser.Wrap(c.supplied, headless, log), nil
	}
	return browser.Launch(browser.Config{
		Headless: headless,
		Bin:      c.config.BrowserBin,
	}, log)
}

// releaseBrowser closes owned browsers unless debug mode wants them kept
// open. Supplied browsers stay untouched.
func (c *Controller) releaseBrowser(b *browser.Browser) {
	if b == nil || !b.Owned() || c.config.Debug {
		return
	}
	if err := b.Close(); err != nil {
		c.logger.Warnf("Failed to close browser: %v", err)
	}
}

// fail records and logs a terminal failure and builds its diagnostic
// response. The session state is still persisted so the identity chosen for
// this run survives into the next one; a save failure only warns.
func (c *Controller) fail(query string, ferr *serrors.SearchError, start time.Time, policy *captcha.Policy, state *session.State, log *logger.Logger) *Response {
	duration := time.Since(start)
	log.ErrorEvent(ferr, query, ferr.Operation)
	if state != nil {
		if err := c.store.Save(c.config.StatePath, *state, c.config.NoSaveState); err != nil {
			log.Warnf("Failed to persist session state: %v", err)
		}
	}
	c.record(query, 0, "", duration, ferr)
	return failureResponse(query, ferr, duration, policy.Attempts())
}

// record appends the run to the history database when enabled. History is
// best effort; a broken database never fails a search.
func (c *Controller) record(query string, count int, strat string, duration time.Duration, runErr error) {
	if !c.config.HistoryEnabled {
		return
	}

	store, err := history.Open(filepath.Join(c.env.StorageDir, "history.db"))
	if err != nil {
		c.logger.Warnf("Failed to open history database: %v", err)
		return
	}
	defer store.Close()

	rec := history.Record{
		Query:       query,
		ResultCount: count,
		Strategy:    strat,
		Duration:    duration,
	}
	if runErr != nil {
		rec.Failed = true
		rec.Error = runErr.Error()
	}
	if err := store.Append(rec); err != nil {
		c.logger.Warnf("Failed to record run history: %v", err)
	}
}

// findFirst tries each selector with a short timeout and returns the first
// element found.
func findFirst(page *rod.Page, selectors []string) (*rod.Element, error) {
	for _, sel := range selectors {
		el, err := page.Timeout(selectorTimeout).Element(sel)
		if err == nil && el != nil {
			return el, nil
		}
	}
	return nil, fmt.Errorf("no selector matched: %s", strings.Join(selectors, ", "))
}

// challengeCleared reports whether u is a readable, non-challenge URL. An
// empty string means the page state could not be read and never counts as
// cleared.
func challengeCleared(u string) bool {
	return u != "" && !captcha.IsChallenge(u)
}

func pageURL(page *rod.Page) string {
	info, err := page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}
