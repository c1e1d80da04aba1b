package browser

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"

	"github.com/serpdriver/serpdriver/internal/fingerprint"
)

// injectStealth registers anti-detection scripts to run before any page
// content. The stealth library covers the broad automation signals; the
// mask script pins the identity-specific surfaces to the emulated device.
func injectStealth(page *rod.Page, fp fingerprint.Config, device fingerprint.Device) error {
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		return err
	}
	if _, err := page.EvalOnNewDocument(maskScript(fp, device)); err != nil {
		return err
	}
	return nil
}

// maskScript builds the per-identity patch script. Everything here must
// agree with the CDP emulation overrides applied in NewPage, otherwise the
// mismatch itself becomes a detection signal.
func maskScript(fp fingerprint.Config, device fingerprint.Device) string {
	primary := fp.Locale
	if primary == "" {
		primary = "en-US"
	}
	short := primary
	if len(short) > 2 {
		short = short[:2]
	}

	return fmt.Sprintf(`(() => {
	'use strict';
	if (window.__identityApplied) return;
	window.__identityApplied = true;

	try {
		Object.defineProperty(navigator, 'webdriver', {
			get: () => undefined,
			configurable: true
		});

		Object.defineProperty(navigator, 'languages', {
			get: () => [%q, %q],
			configurable: true
		});

		if (!window.chrome) {
			window.chrome = { runtime: {} };
		}

		Object.defineProperty(screen, 'width', { get: () => %d, configurable: true });
		Object.defineProperty(screen, 'height', { get: () => %d, configurable: true });
		Object.defineProperty(screen, 'availWidth', { get: () => %d, configurable: true });
		Object.defineProperty(screen, 'availHeight', { get: () => %d, configurable: true });
		Object.defineProperty(screen, 'colorDepth', { get: () => 24, configurable: true });
		Object.defineProperty(screen, 'pixelDepth', { get: () => 24, configurable: true });

		const getParameter = WebGLRenderingContext.prototype.getParameter;
		WebGLRenderingContext.prototype.getParameter = function(parameter) {
			if (parameter === 37445) return 'Intel Inc.';
			if (parameter === 37446) return 'Intel Iris OpenGL Engine';
			return getParameter.apply(this, arguments);
		};

		if (window.navigator.permissions && window.navigator.permissions.query) {
			const originalQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
			window.navigator.permissions.query = (parameters) => {
				if (parameters.name === 'notifications') {
					return Promise.resolve({ state: 'default', onchange: null });
				}
				return originalQuery(parameters);
			};
		}
	} catch (e) {}
})();`, primary, short, device.Width, device.Height, device.Width, device.Height-40)
}
