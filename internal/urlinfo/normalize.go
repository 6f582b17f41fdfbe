package urlinfo

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// encodeHost lowercases hostname and IDNA2008-encodes it when it carries
// non-ASCII labels.
func encodeHost(hostname string) (string, error) {
	hostname = strings.ToLower(hostname)
	if isASCII(hostname) {
		return hostname, nil
	}
	encoded, err := idna.Lookup.ToASCII(hostname)
	if err != nil {
		return "", errInvalid("idna encoding failed: " + err.Error())
	}
	return encoded, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// normalize applies path/query canonicalization to an already-parsed
// URLInfo. It is idempotent: normalize(normalize(u)) == normalize(u).
func normalize(info URLInfo) URLInfo {
	info.path = normalizePath(info.path)
	info.query = normalizeQuery(info.query)
	return info
}

// normalizePath collapses repeated slashes, resolves "." and ".." segments
// without escaping the root, re-encodes percent-escapes consistently
// (decoding over-encoded unreserved characters, keeping reserved ones
// encoded), and preserves a trailing slash exactly as present after
// dot-segment resolution.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}

	decoded := reencodePath(path)

	trailingSlash := strings.HasSuffix(decoded, "/") && decoded != "/"

	segments := strings.Split(decoded, "/")
	var resolved []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			// drop empty (collapses repeated slashes) and current-dir segments
		case "..":
			if len(resolved) > 0 {
				resolved = resolved[:len(resolved)-1]
			}
			// at root: ".." is absorbed rather than escaping it
		default:
			resolved = append(resolved, seg)
		}
	}

	result := "/" + strings.Join(resolved, "/")
	if trailingSlash && result != "/" {
		result += "/"
	}
	return result
}

// reencodePath decodes over-encoded unreserved characters (letters,
// digits, '-', '.', '_', '~') and leaves reserved/percent-escapes for
// everything else untouched.
func reencodePath(path string) string {
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		if path[i] == '%' && i+2 < len(path) && isHex(path[i+1]) && isHex(path[i+2]) {
			decoded := unhex(path[i+1])<<4 | unhex(path[i+2])
			if isUnreserved(byte(decoded)) {
				b.WriteByte(byte(decoded))
			} else {
				b.WriteByte(path[i])
				b.WriteByte(path[i+1])
				b.WriteByte(path[i+2])
			}
			i += 2
			continue
		}
		b.WriteByte(path[i])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func unhex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 0
}

// normalizeQuery sorts parameters stably by key then value, preserving
// insertion order among duplicate key/value pairs.
func normalizeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	pairs := strings.Split(rawQuery, "&")
	type kv struct {
		key, val string
		order    int
	}
	parsed := make([]kv, 0, len(pairs))
	for i, p := range pairs {
		if p == "" {
			continue
		}
		k := p
		v := ""
		if idx := strings.IndexByte(p, '='); idx >= 0 {
			k = p[:idx]
			v = p[idx+1:]
		}
		dk, errK := url.QueryUnescape(k)
		if errK != nil {
			dk = k
		}
		dv, errV := url.QueryUnescape(v)
		if errV != nil {
			dv = v
		}
		parsed = append(parsed, kv{key: dk, val: dv, order: i})
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		if parsed[i].key != parsed[j].key {
			return parsed[i].key < parsed[j].key
		}
		return parsed[i].val < parsed[j].val
	})

	var b strings.Builder
	for i, p := range parsed {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.val))
	}
	return b.String()
}
