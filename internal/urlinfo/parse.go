package urlinfo

import (
	"net/url"
	"strings"
)

// disallowedSchemes can never produce a valid URLInfo, regardless of case.
var disallowedSchemes = map[string]bool{
	"javascript": true,
	"data":       true,
}

// Parse parses raw into a URLInfo, optionally resolving it against base
// (protocol-relative "//host/...", relative paths including ".." walk-up,
// and absolute paths). If raw carries no scheme and base is given, the
// result inherits base's scheme; otherwise it defaults to "http".
//
// Any of the following yields an invalid URLInfo rather than a propagated
// error: empty input, a disallowed scheme (javascript:, data:, in any
// case variant), control characters / NUL bytes / raw whitespace in the
// authority or path, or a failure of the security checks in security.go.
func Parse(raw string, base *URLInfo) URLInfo {
	if raw == "" {
		return invalid(raw, "empty url")
	}
	if containsControlOrWhitespace(raw) {
		return invalid(raw, "control characters or raw whitespace in url")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return invalid(raw, "unparseable url: "+err.Error())
	}

	if base != nil {
		baseURL, err := baseToURL(*base)
		if err != nil {
			return invalid(raw, "invalid base url")
		}
		parsed = baseURL.ResolveReference(parsed)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		if base != nil {
			scheme = base.scheme
		} else {
			scheme = "http"
		}
	}
	if disallowedSchemes[scheme] {
		return invalid(raw, "disallowed scheme: "+scheme)
	}
	if scheme != "http" && scheme != "https" && scheme != "file" {
		return invalid(raw, "unsupported scheme: "+scheme)
	}

	if scheme != "file" && parsed.Host == "" {
		return invalid(raw, "missing host")
	}

	// Strip userinfo and fragment from the final form.
	parsed.User = nil
	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.Scheme = scheme

	info := URLInfo{raw: raw, valid: true}
	if err := applyHostAndPort(&info, parsed); err != nil {
		return invalid(raw, err.Error())
	}
	info.scheme = scheme
	info.path = parsed.EscapedPath()
	info.query = parsed.RawQuery

	info = normalize(info)

	if reason, ok := securityCheck(info); !ok {
		info.valid = false
		info.errorReason = reason
		return info
	}

	classifyRegisteredDomain(&info)
	return info
}

// baseToURL reconstructs a net/url.URL suitable for ResolveReference from
// an already-normalized base URLInfo.
func baseToURL(base URLInfo) (*url.URL, error) {
	raw := base.scheme + "://" + base.host
	if base.port != "" {
		raw += ":" + base.port
	}
	raw += base.path
	if base.query != "" {
		raw += "?" + base.query
	}
	return url.Parse(raw)
}

func applyHostAndPort(info *URLInfo, parsed *url.URL) error {
	if parsed.Host == "" {
		return nil
	}
	hostname := parsed.Hostname()
	port := parsed.Port()

	if containsControlOrWhitespace(hostname) {
		return errInvalid("control characters in host")
	}

	encodedHost, err := encodeHost(hostname)
	if err != nil {
		return err
	}

	if isDefaultPort(info.scheme, port) {
		port = ""
	}

	info.host = encodedHost
	info.port = port
	return nil
}

func isDefaultPort(scheme, port string) bool {
	switch scheme {
	case "http":
		return port == "" || port == "80"
	case "https":
		return port == "" || port == "443"
	default:
		return port == ""
	}
}

type parseError string

func (e parseError) Error() string { return string(e) }

func errInvalid(msg string) error { return parseError(msg) }

func containsControlOrWhitespace(s string) bool {
	for _, r := range s {
		if r <= 0x1F || r == 0x7F {
			return true
		}
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return true
		}
	}
	return false
}
