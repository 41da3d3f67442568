package mime

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ParseDataURI parses a "data:[<mediatype>][;base64],<data>" URI per
// RFC 2397, returning the media type, any parameters (e.g. charset),
// and the decoded payload bytes.
func ParseDataURI(s string) (mediaType string, params map[string]string, payload []byte, err error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, nil, fmt.Errorf("mime: not a data URI")
	}
	rest := s[len("data:"):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", nil, nil, fmt.Errorf("mime: malformed data URI, missing ','")
	}
	meta := rest[:comma]
	data := rest[comma+1:]

	isBase64 := false
	parts := strings.Split(meta, ";")
	mediaType = parts[0]
	params = map[string]string{}
	for _, p := range parts[1:] {
		if p == "base64" {
			isBase64 = true
			continue
		}
		if eq := strings.IndexByte(p, '='); eq >= 0 {
			params[p[:eq]] = p[eq+1:]
		}
	}
	if mediaType == "" {
		mediaType = "text/plain"
		if _, ok := params["charset"]; !ok {
			params["charset"] = "US-ASCII"
		}
	}

	if isBase64 {
		payload, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			payload, err = base64.RawStdEncoding.DecodeString(data)
		}
		if err != nil {
			return "", nil, nil, fmt.Errorf("mime: decode base64 data URI payload: %w", err)
		}
		return mediaType, params, payload, nil
	}

	decoded, err := url.QueryUnescape(data)
	if err != nil {
		return "", nil, nil, fmt.Errorf("mime: decode percent-encoded data URI payload: %w", err)
	}
	return mediaType, params, []byte(decoded), nil
}
