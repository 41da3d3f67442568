package codec

import (
	"mime"
	"strings"
)

// WordKind selects the RFC 2047 encoding alphabet.
type WordKind int

const (
	// KindAuto picks Q for mostly-Latin text and B for mostly non-Latin
	// text, by the ratio of non-Latin to Latin runes.
	KindAuto WordKind = iota
	KindQ
	KindB
)

const maxEncodedWordLen = 75

// needsEncoding reports whether s contains any byte outside printable ASCII.
func needsEncoding(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return true
		}
	}
	return false
}

// pickKind applies the non-Latin-vs-Latin ratio heuristic: B wins when
// non-Latin runes (outside the Latin-1 Supplement and Latin Extended
// blocks) dominate the non-ASCII content, else Q.
func pickKind(s string) WordKind {
	var latin, other int
	for _, r := range s {
		if r < 128 {
			continue
		}
		if r <= 0x24F { // Latin-1 Supplement + Latin Extended-A/B
			latin++
		} else {
			other++
		}
	}
	if other > latin {
		return KindB
	}
	return KindQ
}

// EncodeWord wraps s as one or more adjacent RFC 2047 encoded-words if it
// contains non-ASCII bytes, splitting on rune boundaries (never a
// multi-byte UTF-8 sequence or a surrogate-pair emoji) so that no single
// encoded-word exceeds maxLen characters. If s is plain ASCII, it is
// returned unchanged.
func EncodeWord(s string, kind WordKind, maxLen int) string {
	if !needsEncoding(s) {
		return s
	}
	if maxLen <= 0 {
		maxLen = maxEncodedWordLen
	}
	if kind == KindAuto {
		kind = pickKind(s)
	}

	runes := []rune(s)
	var words []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		for end > start {
			candidate := string(runes[start:end])
			var encoded string
			if kind == KindB {
				encoded = strings.ReplaceAll(mime.BEncoding.Encode("UTF-8", candidate), "=?UTF-8?b?", "=?UTF-8?B?")
			} else {
				encoded = strings.ReplaceAll(mime.QEncoding.Encode("UTF-8", candidate), "=?UTF-8?q?", "=?UTF-8?Q?")
			}
			if len(encoded) <= maxLen || end == start+1 {
				words = append(words, encoded)
				start = end
				break
			}
			end--
		}
	}
	return strings.Join(words, " ")
}

// EncodeWords leaves ASCII words untouched and encodes only the
// space-separated words that contain non-ASCII characters, so "Hello héllo"
// becomes "Hello =?UTF-8?Q?h=C3=A9llo?=" rather than encoding the whole
// string. Adjacent non-ASCII words are encoded together so the spaces
// between them survive decoding.
func EncodeWords(s string, kind WordKind, maxLen int) string {
	if !needsEncoding(s) {
		return s
	}

	words := strings.Split(s, " ")
	var out []string
	for i := 0; i < len(words); i++ {
		if !needsEncoding(words[i]) {
			out = append(out, words[i])
			continue
		}
		j := i + 1
		for j < len(words) && needsEncoding(words[j]) {
			j++
		}
		out = append(out, EncodeWord(strings.Join(words[i:j], " "), kind, maxLen))
		i = j - 1
	}
	return strings.Join(out, " ")
}
