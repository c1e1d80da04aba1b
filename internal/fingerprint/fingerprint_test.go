package fingerprint

import "testing"

// =============================================================================
// Timezone Mapping Tests
// =============================================================================

func TestTimezoneForOffset(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		want   string
	}{
		{"utc plus 8 lower bound", -480, "Asia/Shanghai"},
		{"utc plus 10 upper edge", -600, "Asia/Shanghai"},
		{"utc plus 9", -540, "Asia/Shanghai"},
		{"utc plus 11 beyond table", -660, "Asia/Tokyo"},
		{"utc plus 7ish", -440, "Asia/Bangkok"},
		{"utc plus 7 exact excluded", -420, "America/New_York"},
		{"utc zero", 0, "Europe/London"},
		{"utc plus 30min", -30, "Europe/London"},
		{"utc minus 1", 60, "Europe/Berlin"},
		{"utc minus 5", 300, "America/New_York"},
		{"utc minus 4", 240, "America/New_York"},
		{"utc minus 8 unmatched", 480, "America/New_York"},
		{"utc plus 2 unmatched", -120, "America/New_York"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timezoneForOffset(tt.offset)
			if got != tt.want {
				t.Errorf("timezoneForOffset(%d) = %q, want %q", tt.offset, got, tt.want)
			}
		})
	}
}

func TestTimezoneTableOrderMatters(t *testing.T) {
	// -480 sits in both the Shanghai range and below the Tokyo cutoff.
	// First match must win.
	if got := timezoneForOffset(-480); got != "Asia/Shanghai" {
		t.Errorf("expected ordered table to resolve -480 to Asia/Shanghai, got %q", got)
	}
}

// =============================================================================
// Color Scheme Tests
// =============================================================================

func TestColorSchemeForHour(t *testing.T) {
	darkHours := []int{19, 20, 23, 0, 3, 6}
	for _, h := range darkHours {
		if got := colorSchemeForHour(h); got != "dark" {
			t.Errorf("hour %d: expected dark, got %q", h, got)
		}
	}

	lightHours := []int{7, 9, 12, 15, 18}
	for _, h := range lightHours {
		if got := colorSchemeForHour(h); got != "light" {
			t.Errorf("hour %d: expected light, got %q", h, got)
		}
	}
}

// =============================================================================
// Synthesize Tests
// =============================================================================

func TestSynthesize_LocalePrecedence(t *testing.T) {
	signals := HostSignals{UTCOffsetMinutes: 0, Hour: 12, OS: "linux", Locale: "de-DE"}

	cfg := Synthesize(signals, "fr-FR")
	if cfg.Locale != "fr-FR" {
		t.Errorf("override should win, got %q", cfg.Locale)
	}

	cfg = Synthesize(signals, "")
	if cfg.Locale != "de-DE" {
		t.Errorf("host locale should win without override, got %q", cfg.Locale)
	}

	signals.Locale = ""
	cfg = Synthesize(signals, "")
	if cfg.Locale != "en-US" {
		t.Errorf("expected en-US default, got %q", cfg.Locale)
	}
}

func TestSynthesize_DeviceAlwaysDesktopChrome(t *testing.T) {
	for _, os := range []string{"windows", "darwin", "linux", "freebsd"} {
		cfg := Synthesize(HostSignals{Hour: 12, OS: os}, "")
		if cfg.DeviceName != "Desktop Chrome" {
			t.Errorf("os %s: expected Desktop Chrome, got %q", os, cfg.DeviceName)
		}
	}
}

func TestSynthesize_FixedMediaDefaults(t *testing.T) {
	cfg := Synthesize(HostSignals{Hour: 12}, "")
	if cfg.ReducedMotion != "no-preference" {
		t.Errorf("expected no-preference, got %q", cfg.ReducedMotion)
	}
	if cfg.ForcedColors != "none" {
		t.Errorf("expected none, got %q", cfg.ForcedColors)
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	signals := HostSignals{UTCOffsetMinutes: -480, Hour: 21, OS: "darwin", Locale: "zh-CN"}
	first := Synthesize(signals, "")
	for i := 0; i < 5; i++ {
		if got := Synthesize(signals, ""); got != first {
			t.Fatalf("synthesis not deterministic: %+v vs %+v", got, first)
		}
	}
	if first.TimezoneID != "Asia/Shanghai" {
		t.Errorf("expected Asia/Shanghai, got %q", first.TimezoneID)
	}
	if first.ColorScheme != "dark" {
		t.Errorf("expected dark at hour 21, got %q", first.ColorScheme)
	}
}

// =============================================================================
// Device Lookup Tests
// =============================================================================

func TestDeviceByName(t *testing.T) {
	d, ok := DeviceByName("Desktop Chrome")
	if !ok {
		t.Fatal("expected Desktop Chrome to exist")
	}
	if d.Width != 1920 || d.Height != 1080 || d.Scale != 1 {
		t.Errorf("unexpected dimensions: %dx%d @%v", d.Width, d.Height, d.Scale)
	}
	if d.UserAgent == "" {
		t.Error("expected non-empty user agent")
	}

	if _, ok := DeviceByName("iPhone 15"); ok {
		t.Error("mobile profiles must not exist")
	}
}

func TestRandomDevice(t *testing.T) {
	for i := 0; i < 20; i++ {
		d := RandomDevice()
		if _, ok := DeviceByName(d.Name); !ok {
			t.Fatalf("RandomDevice returned unknown profile %q", d.Name)
		}
	}
}
