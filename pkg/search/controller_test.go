package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/serpdriver/serpdriver/internal/captcha"
	serrors "github.com/serpdriver/serpdriver/internal/errors"
	"github.com/serpdriver/serpdriver/internal/fingerprint"
	"github.com/serpdriver/serpdriver/internal/session"
)

// =============================================================================
// Constructor and Option Tests
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())

	c, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	cfg := c.Config()
	if cfg.Limit != DefaultLimit {
		t.Errorf("expected default limit, got %d", cfg.Limit)
	}
	if cfg.StatePath == "" {
		t.Error("expected state path derived from storage dir")
	}
	if filepath.Base(cfg.StatePath) != "state.json" {
		t.Errorf("unexpected state file name %q", cfg.StatePath)
	}
}

func TestNew_Options(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())

	c, err := New(
		WithLimit(3),
		WithTimeout(10*time.Second),
		WithLocale("fr-FR"),
		WithStatePath("/tmp/custom/state.json"),
		WithHeadless(false),
		WithNoSaveState(true),
		WithHistory(false),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	cfg := c.Config()
	if cfg.Limit != 3 || cfg.Timeout != 10*time.Second || cfg.Locale != "fr-FR" {
		t.Errorf("options not applied: %+v", cfg)
	}
	if cfg.StatePath != "/tmp/custom/state.json" {
		t.Errorf("state path not applied: %q", cfg.StatePath)
	}
	if cfg.Headless || !cfg.NoSaveState || cfg.HistoryEnabled {
		t.Errorf("flags not applied: %+v", cfg)
	}
}

func TestNew_LimitClamped(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())

	c, err := New(WithLimit(-5))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.Config().Limit != 1 {
		t.Errorf("expected limit clamped to 1, got %d", c.Config().Limit)
	}
}

func TestNew_EnvBrowserBin(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())
	t.Setenv(EnvBrowserBin, "/opt/chrome/chrome")

	c, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.Config().BrowserBin != "/opt/chrome/chrome" {
		t.Errorf("environment browser bin not picked up: %q", c.Config().BrowserBin)
	}
}

func TestNew_DebugForcesVisible(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())

	c, err := New(WithHeadless(true), WithDebug(true))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.Config().Headless {
		t.Error("debug mode must run the browser visible")
	}

	cfg := DefaultConfig()
	cfg.Debug = true
	c, err = New(WithConfig(cfg))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.Config().Headless {
		t.Error("debug via config must also run the browser visible")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())

	if _, err := New(WithConfig(&Config{})); err == nil {
		t.Error("expected validation error for zero config")
	}
}

// =============================================================================
// Search Validation Tests
// =============================================================================

func TestSearch_EmptyQuery(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())

	c, err := New(WithHistory(false))
	if err != nil {
		t.Fatal(err)
	}

	for _, q := range []string{"", "   ", "\t\n"} {
		resp, err := c.Search(context.Background(), q)
		if err == nil {
			t.Errorf("query %q: expected error", q)
		}
		if resp != nil {
			t.Errorf("query %q: expected nil response, got %+v", q, resp)
		}
		if serrors.GetErrorType(err) != serrors.State {
			t.Errorf("query %q: expected state error, got %v", q, serrors.GetErrorType(err))
		}
	}
}

// =============================================================================
// Endpoint Resolution Tests
// =============================================================================

func TestResolveEndpoint(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())

	c, err := New(WithGoogleURL("https://www.google.fr"))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.resolveEndpoint(&session.State{GoogleURL: "https://www.google.de"}); got != "https://www.google.fr" {
		t.Errorf("explicit override must win, got %q", got)
	}

	c, err = New()
	if err != nil {
		t.Fatal(err)
	}
	if got := c.resolveEndpoint(&session.State{GoogleURL: "https://www.google.de"}); got != "https://www.google.de" {
		t.Errorf("persisted domain must be reused, got %q", got)
	}

	got := c.resolveEndpoint(&session.State{})
	found := false
	for _, d := range googleDomains {
		if got == d {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("fresh session must draw from the fixed rotation, got %q", got)
	}
}

// =============================================================================
// Failure Response Tests
// =============================================================================

func TestFailureResponse(t *testing.T) {
	ferr := serrors.NewCaptchaError("test query", "https://www.google.com/sorry/index")
	resp := failureResponse("test query", ferr, 3*time.Second, 2)

	if !resp.Failed {
		t.Error("expected failed flag")
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected single diagnostic result, got %d", len(resp.Results))
	}
	if resp.Results[0].Title != FailureTitle {
		t.Errorf("expected failure marker title, got %q", resp.Results[0].Title)
	}
	if resp.Results[0].Snippet == "" || resp.Error == "" {
		t.Error("expected error details in snippet and response")
	}
	if resp.Recoveries != 2 {
		t.Errorf("expected recovery count carried through, got %d", resp.Recoveries)
	}
}

func TestFail_PersistsState(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())

	c, err := New(WithHistory(false))
	if err != nil {
		t.Fatal(err)
	}

	state := session.State{
		Fingerprint: fingerprint.Config{DeviceName: "Desktop Chrome", Locale: "en-US"},
		GoogleURL:   "https://www.google.de",
	}
	ferr := serrors.NewNavigationError("test query", state.GoogleURL, nil)

	resp := c.fail("test query", ferr, time.Now(), captcha.NewPolicy(), &state, c.logger)
	if !resp.Failed {
		t.Error("expected diagnostic failure response")
	}

	// The identity chosen for the failed run must survive into the next one.
	if _, err := os.Stat(session.SidecarPath(c.Config().StatePath)); err != nil {
		t.Errorf("identity sidecar not persisted on failure: %v", err)
	}
	got := session.NewStore(c.logger).Load(c.Config().StatePath)
	if got.Fingerprint.DeviceName != "Desktop Chrome" || got.GoogleURL != "https://www.google.de" {
		t.Errorf("persisted state mismatch: %+v", got)
	}
}

func TestFail_RespectsNoSaveState(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())

	c, err := New(WithHistory(false), WithNoSaveState(true))
	if err != nil {
		t.Fatal(err)
	}

	state := session.State{Fingerprint: fingerprint.Config{DeviceName: "Desktop Chrome"}}
	ferr := serrors.NewNavigationError("test query", "https://www.google.com", nil)
	c.fail("test query", ferr, time.Now(), captcha.NewPolicy(), &state, c.logger)

	if _, err := os.Stat(session.SidecarPath(c.Config().StatePath)); !os.IsNotExist(err) {
		t.Error("no-save-state must also hold on the failure path")
	}
}

// =============================================================================
// Challenge URL Tests
// =============================================================================

func TestChallengeCleared(t *testing.T) {
	if challengeCleared("") {
		t.Error("an unreadable page URL must not count as cleared")
	}
	if challengeCleared("https://www.google.com/sorry/index?continue=x") {
		t.Error("a challenge URL must not count as cleared")
	}
	if !challengeCleared("https://www.google.com/search?q=weather") {
		t.Error("an ordinary results URL must count as cleared")
	}
}

// =============================================================================
// Multi-Query Tests
// =============================================================================

func TestMultiSearch_EmptyQueries(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())

	c, err := New(WithHistory(false))
	if err != nil {
		t.Fatal(err)
	}

	resps, err := c.MultiSearch(context.Background(), nil)
	if err == nil {
		t.Error("expected error for empty query list")
	}
	if resps != nil {
		t.Errorf("expected nil responses, got %v", resps)
	}
}

func TestStatePathForQuery(t *testing.T) {
	tests := []struct {
		base string
		idx  int
		want string
	}{
		{"state.json", 0, "state-1.json"},
		{"state.json", 4, "state-5.json"},
		{"/data/s.json", 1, "/data/s-2.json"},
		{"state", 0, "state-1"},
	}

	for _, tt := range tests {
		if got := StatePathForQuery(tt.base, tt.idx); got != tt.want {
			t.Errorf("StatePathForQuery(%q, %d) = %q, want %q", tt.base, tt.idx, got, tt.want)
		}
	}

	// Sibling queries must never share a sidecar.
	a := StatePathForQuery("state.json", 0)
	b := StatePathForQuery("state.json", 1)
	if a == b {
		t.Error("adjacent query indexes collided")
	}
}

func TestDispatch_OrderPreservedWithFailedSlot(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())

	c, err := New(WithHistory(false), WithStaggerInterval(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	queries := []string{"alpha", "beta", "gamma"}
	run := func(idx int, q string) *Response {
		// Later slots finish first, so out-of-order collection would show.
		time.Sleep(time.Duration(len(queries)-idx) * 20 * time.Millisecond)
		if q == "beta" {
			return failureResponse(q, serrors.NewNoResultsError(q), 0, 0)
		}
		return &Response{Query: q}
	}

	resps := c.dispatch(context.Background(), queries, run)
	if len(resps) != len(queries) {
		t.Fatalf("expected %d responses, got %d", len(queries), len(resps))
	}
	for i, q := range queries {
		if resps[i] == nil || resps[i].Query != q {
			t.Errorf("slot %d: expected query %q, got %+v", i, q, resps[i])
		}
	}
	if resps[0].Failed || resps[2].Failed {
		t.Error("successful slots marked failed")
	}
	if !resps[1].Failed || resps[1].Results[0].Title != FailureTitle {
		t.Error("failed slot must carry the diagnostic response in place")
	}
}

func TestDispatch_CancelledContextFillsAllSlots(t *testing.T) {
	t.Setenv(EnvStorageDir, t.TempDir())

	c, err := New(WithHistory(false))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queries := []string{"one", "two"}
	resps := c.dispatch(ctx, queries, func(int, string) *Response {
		t.Error("run must not be invoked after cancellation")
		return nil
	})

	for i, q := range queries {
		if resps[i] == nil || !resps[i].Failed || resps[i].Query != q {
			t.Errorf("slot %d: expected diagnostic response for %q, got %+v", i, q, resps[i])
		}
	}
}
