package entity

import "net/url"

// IsValidURL reports whether raw is an absolute http or https URL.
//
// The input is percent-decoded first, so encoded schemes such as
// "javascript%3Aalert(1)" are rejected the same way as their plain form.
func IsValidURL(raw string) bool {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return false
	}

	u, err := url.Parse(decoded)
	if err != nil || !u.IsAbs() {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	return u.Host != ""
}
