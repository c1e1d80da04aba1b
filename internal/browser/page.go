package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/serpdriver/serpdriver/internal/fingerprint"
)

// NewPage builds a page inside a fresh incognito context with the given
// identity applied and any persisted cookies replayed. The page carries ctx
// so cancellation propagates to every CDP call made through it.
func (b *Browser) NewPage(ctx context.Context, fp fingerprint.Config, device fingerprint.Device, cookies []*proto.NetworkCookieParam) (*rod.Page, error) {
	incognito, err := b.rod.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page = page.Context(ctx)

	if err := injectStealth(page, fp, device); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to inject stealth scripts: %w", err)
	}

	err = proto.NetworkSetUserAgentOverride{
		UserAgent:      device.UserAgent,
		AcceptLanguage: fp.Locale,
	}.Call(page)
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to override user agent: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             device.Width,
		Height:            device.Height,
		DeviceScaleFactor: device.Scale,
		Mobile:            false,
	})
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	// Timezone and locale overrides can fail on some Chrome builds; the
	// search still works, just with a less consistent identity.
	if fp.TimezoneID != "" {
		_ = proto.EmulationSetTimezoneOverride{TimezoneID: fp.TimezoneID}.Call(page)
	}
	if fp.Locale != "" {
		_ = proto.EmulationSetLocaleOverride{Locale: fp.Locale}.Call(page)
	}

	_ = proto.EmulationSetEmulatedMedia{
		Features: []*proto.EmulationMediaFeature{
			{Name: "prefers-color-scheme", Value: fp.ColorScheme},
			{Name: "prefers-reduced-motion", Value: fp.ReducedMotion},
			{Name: "forced-colors", Value: fp.ForcedColors},
		},
	}.Call(page)

	headers := proto.NetworkHeaders{
		"Accept-Language": gson.New(acceptLanguage(fp.Locale)),
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: headers}.Call(page)

	if len(cookies) > 0 {
		if err := page.SetCookies(cookies); err != nil {
			b.log.Warnf("Failed to replay cookies, continuing without them: %v", err)
		}
	}

	return page, nil
}

// acceptLanguage builds a weighted header from the primary locale.
func acceptLanguage(locale string) string {
	if locale == "" || locale == "en-US" {
		return "en-US,en;q=0.9"
	}
	short := locale
	if len(short) > 2 {
		short = short[:2]
	}
	return locale + "," + short + ";q=0.9,en-US;q=0.8,en;q=0.7"
}

// CaptureCookies snapshots all cookies visible to the page, including ones
// for other domains set during navigation.
func CaptureCookies(page *rod.Page) ([]*proto.NetworkCookie, error) {
	res, err := proto.NetworkGetCookies{}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	return res.Cookies, nil
}

// TypeHumanized clicks el and enters text one rune at a time with jittered
// delays, then presses Enter. Instant bulk input is a strong automation
// signal on search boxes.
func TypeHumanized(page *rod.Page, el *rod.Element, text string) error {
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to focus input: %w", err)
	}

	for _, r := range text {
		if err := page.InsertText(string(r)); err != nil {
			return fmt.Errorf("failed to type: %w", err)
		}
		time.Sleep(time.Duration(30+rand.Intn(70)) * time.Millisecond)
	}

	// Brief hesitation before submit, like a human re-reading the query.
	time.Sleep(time.Duration(200+rand.Intn(400)) * time.Millisecond)

	if err := page.Keyboard.Press(input.Enter); err != nil {
		return fmt.Errorf("failed to submit: %w", err)
	}
	return nil
}
