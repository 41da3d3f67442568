package codec

import "strings"

const foldLineLimit = 76

// FoldHeader breaks "key: value" at whitespace so each emitted line is at
// most foldLineLimit characters, indenting continuation lines with a single
// space as RFC 5322 requires. A value that already contains CRLF (a
// pre-folded value prepared by the caller) is returned unchanged.
func FoldHeader(key, value string) string {
	if strings.Contains(value, "\r\n") {
		return key + ": " + value
	}

	line := key + ": " + value
	if len(line) <= foldLineLimit {
		return line
	}

	words := strings.Split(value, " ")
	var out strings.Builder
	out.WriteString(key)
	out.WriteString(":")
	col := len(key) + 1
	for i, w := range words {
		sep := " "
		if i == 0 {
			sep = " "
		}
		if col+len(sep)+len(w) > foldLineLimit && col > len(key)+1 {
			out.WriteString("\r\n ")
			col = 1
			sep = ""
		}
		out.WriteString(sep)
		out.WriteString(w)
		col += len(sep) + len(w)
	}
	return out.String()
}
