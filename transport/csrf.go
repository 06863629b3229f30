package transport

import "strings"

// TokenFromCookieString extracts the value of the named cookie from a raw
// multi-cookie header string ("a=1; csrf_token=abc; b=2"). The name must match
// exactly; a leading "; " separator before any entry is tolerated. The second
// return value is false when the cookie is absent or empty.
func TokenFromCookieString(raw, name string) (string, bool) {
	if raw == "" || name == "" {
		return "", false
	}

	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		key, value, found := strings.Cut(part, "=")
		if !found || key != name {
			continue
		}
		if value == "" {
			return "", false
		}
		return value, true
	}

	return "", false
}
