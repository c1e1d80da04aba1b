// Package fingerprint derives a plausible desktop browser identity from
// host signals, so repeated runs present as the same returning user.
package fingerprint

import (
	"math"
	"math/rand"
	"runtime"
	"time"
)

// Config is the browser identity presented to the target site.
type Config struct {
	DeviceName    string `json:"deviceName"`
	Locale        string `json:"locale"`
	TimezoneID    string `json:"timezoneId"`
	ColorScheme   string `json:"colorScheme"`   // "dark" or "light"
	ReducedMotion string `json:"reducedMotion"` // "reduce" or "no-preference"
	ForcedColors  string `json:"forcedColors"`  // "active" or "none"
}

// Device describes a desktop browser profile. All profiles are non-touch,
// non-mobile.
type Device struct {
	Name      string
	UserAgent string
	Width     int
	Height    int
	Scale     float64
}

// Devices is the fixed desktop-profile list. The first entry is the default
// Chrome-class profile that Synthesize always selects.
var Devices = []Device{
	{
		Name:      "Desktop Chrome",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Width:     1920,
		Height:    1080,
		Scale:     1,
	},
	{
		Name:      "Desktop Chrome HiDPI",
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Width:     1440,
		Height:    900,
		Scale:     2,
	},
	{
		Name:      "Desktop Edge",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
		Width:     1920,
		Height:    1080,
		Scale:     1,
	},
	{
		Name:      "Desktop Firefox",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
		Width:     1920,
		Height:    1080,
		Scale:     1,
	},
}

// defaultDevice is the single supported desktop-Chrome-class profile.
const defaultDevice = "Desktop Chrome"

// HostSignals are the host-derived inputs to identity synthesis.
type HostSignals struct {
	// UTCOffsetMinutes is the local offset from UTC as reported by the
	// host, using the JavaScript getTimezoneOffset sign convention
	// (UTC+8 is -480).
	UTCOffsetMinutes int
	// Hour is the local hour of day, 0-23.
	Hour int
	// OS is the host operating system family ("windows", "darwin", "linux").
	OS string
	// Locale is the host-level locale hint, may be empty.
	Locale string
}

// CurrentHostSignals reads signals from the running host.
func CurrentHostSignals() HostSignals {
	now := time.Now()
	_, offsetSeconds := now.Zone()
	return HostSignals{
		// Flip sign to match getTimezoneOffset convention.
		UTCOffsetMinutes: -offsetSeconds / 60,
		Hour:             now.Hour(),
		OS:               runtime.GOOS,
	}
}

// tzRange maps a half-open/closed offset interval to a representative zone.
// Evaluated in order, first match wins. This is a deliberately coarse
// heuristic, not a timezone database lookup.
type tzRange struct {
	min, max   float64
	minClosed  bool
	maxClosed  bool
	timezoneID string
}

var tzTable = []tzRange{
	{min: -600, max: -480, minClosed: true, maxClosed: false, timezoneID: "Asia/Shanghai"},
	{min: math.Inf(-1), max: -540, minClosed: false, maxClosed: false, timezoneID: "Asia/Tokyo"},
	{min: -480, max: -420, minClosed: true, maxClosed: false, timezoneID: "Asia/Bangkok"},
	{min: -60, max: 0, minClosed: false, maxClosed: true, timezoneID: "Europe/London"},
	{min: 0, max: 60, minClosed: false, maxClosed: true, timezoneID: "Europe/Berlin"},
	{min: 240, max: 300, minClosed: false, maxClosed: true, timezoneID: "America/New_York"},
}

const fallbackTimezone = "America/New_York"

// timezoneForOffset maps a UTC offset in minutes to a representative zone.
func timezoneForOffset(offsetMinutes int) string {
	v := float64(offsetMinutes)
	for _, r := range tzTable {
		lowOK := v > r.min || (r.minClosed && v == r.min)
		highOK := v < r.max || (r.maxClosed && v == r.max)
		if lowOK && highOK {
			return r.timezoneID
		}
	}
	return fallbackTimezone
}

// colorSchemeForHour returns "dark" during evening and night hours. A proxy
// for the system theme, not a real OS query.
func colorSchemeForHour(hour int) string {
	if hour >= 19 || hour < 7 {
		return "dark"
	}
	return "light"
}

// Synthesize derives an identity from host signals. Given identical signals
// and override, the output is identical across calls.
//
// The OS branch below picks a candidate device per platform, but the result
// is then unconditionally overridden to the single desktop-Chrome profile,
// which gets the most stable search markup. The branch is retained so per-OS
// selection stays one line away.
func Synthesize(signals HostSignals, localeOverride string) Config {
	locale := localeOverride
	if locale == "" {
		locale = signals.Locale
	}
	if locale == "" {
		locale = "en-US"
	}

	device := defaultDevice
	switch signals.OS {
	case "darwin":
		device = "Desktop Chrome HiDPI"
	case "windows":
		device = "Desktop Edge"
	case "linux":
		device = "Desktop Firefox"
	}
	device = defaultDevice

	return Config{
		DeviceName:    device,
		Locale:        locale,
		TimezoneID:    timezoneForOffset(signals.UTCOffsetMinutes),
		ColorScheme:   colorSchemeForHour(signals.Hour),
		ReducedMotion: "no-preference",
		ForcedColors:  "none",
	}
}

// DeviceByName returns the profile with the given name, or false when the
// name is not in the fixed list.
func DeviceByName(name string) (Device, bool) {
	for _, d := range Devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

// RandomDevice picks a pseudo-random profile from the fixed list, used when
// no persisted identity names a recognized device.
func RandomDevice() Device {
	return Devices[rand.Intn(len(Devices))]
}
