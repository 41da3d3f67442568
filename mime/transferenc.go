package mime

import "strings"

// SelectTransferEncoding decides the Content-Transfer-Encoding for a
// leaf node: an explicit, caller-set value always wins; multipart
// and message/* containers are always 7bit; text leaves are sniffed for
// safe-ASCII-ness when their full content is available in memory, and
// text content only available as a stream/file/URL defaults to
// quoted-printable; any other media type defaults to base64.
func SelectTransferEncoding(explicit, contentType string, text *string) string {
	if explicit != "" {
		return explicit
	}
	mt := strings.ToLower(contentType)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	mt = strings.TrimSpace(mt)

	switch {
	case strings.HasPrefix(mt, "multipart/"), strings.HasPrefix(mt, "message/"):
		return "7bit"
	case strings.HasPrefix(mt, "text/"):
		if text == nil {
			return "quoted-printable"
		}
		return selectTextEncoding(*text)
	default:
		return "base64"
	}
}

func selectTextEncoding(s string) string {
	asciiOnly := true
	maxLine, lineLen := 0, 0
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\n' {
			if lineLen > maxLine {
				maxLine = lineLen
			}
			lineLen = 0
			continue
		}
		lineLen++
		if b >= 0x80 || (b < 0x20 && b != '\t' && b != '\r') {
			asciiOnly = false
		}
	}
	if lineLen > maxLine {
		maxLine = lineLen
	}
	if asciiOnly && maxLine <= 76 {
		return "7bit"
	}
	return pickQOrB(s)
}

// pickQOrB picks quoted-printable for mostly-Latin text and base64 for
// text dominated by non-Latin scripts, where QP would expand almost every
// byte to a three-character escape.
func pickQOrB(s string) string {
	var latin, other int
	for _, r := range s {
		switch {
		case r < 0x80:
		case r <= 0x24F:
			latin++
		default:
			other++
		}
	}
	if other > latin {
		return "base64"
	}
	return "quoted-printable"
}
