package auth

import "net/url"

// DefaultLandingPath is where authenticated users land when the requested
// redirect target is missing or unsafe.
const DefaultLandingPath = "/feed"

// ResolveRedirect applies the post-sign-in redirect policy to a caller
// supplied target:
//
//   - a relative path is resolved against the application's base origin
//   - an absolute URL sharing the base origin is passed through unchanged
//   - anything else (cross-origin, unparsable, empty) is discarded in favour
//     of the default authenticated landing page
//
// This prevents open-redirect abuse via the redirect/callback parameter — a
// login link like ?redirect=https://evil.example can never bounce the user to
// an attacker's origin — while still allowing same-origin deep links.
func ResolveRedirect(target, baseURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		// A broken base URL is a deployment bug; the safest observable
		// behaviour is the relative landing path.
		return DefaultLandingPath
	}

	fallback := base.Scheme + "://" + base.Host + DefaultLandingPath

	if target == "" {
		return fallback
	}

	// Relative path: resolve against the base origin. Protocol-relative URLs
	// ("//evil.example/x") parse with a host, so they fall through to the
	// origin check below rather than being treated as paths.
	if target[0] == '/' && (len(target) == 1 || target[1] != '/') {
		return base.Scheme + "://" + base.Host + target
	}

	u, err := url.Parse(target)
	if err != nil {
		return fallback
	}

	if u.Scheme == base.Scheme && u.Host == base.Host {
		return target
	}

	return fallback
}
