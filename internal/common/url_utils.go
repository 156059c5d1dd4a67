package common

import (
	"net/url"
	"strings"
)

// RedactURL removes userinfo, query and fragment from a URL so it can be logged or
// returned by the API. Unparseable input is returned as "<invalid url>".
func RedactURL(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// JoinURLPath joins a base URL and a path with exactly one slash between them
func JoinURLPath(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// SanitizedConfig returns a copy of c that is safe to expose over the API
func SanitizedConfig(c *Config) *Config {
	clone := DeepCloneConfig(c)
	if clone == nil {
		return nil
	}
	clone.Compliance.ServiceURL = RedactURL(clone.Compliance.ServiceURL)
	clone.Auth.DefaultEndpoint = RedactURL(clone.Auth.DefaultEndpoint)
	return clone
}
