package address

import "strings"

// ParseList parses a comma-separated RFC 5322 address list, such as the
// value of a To/Cc/Bcc header, into a flat list of Address values. Groups
// ("display-name: member, member;") are returned as a single Address with
// Group populated; callers that need only leaf mailboxes should pass the
// result through Flatten.
func ParseList(input string) []Address {
	var out []Address
	for _, part := range splitTopLevel(input) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, parseOne(part))
	}
	return out
}

// Parse parses a single address (the first one found, if input contains
// several comma-separated entries).
func Parse(input string) Address {
	list := ParseList(input)
	if len(list) == 0 {
		return Address{}
	}
	return list[0]
}

// splitTopLevel splits s on commas that are not nested inside a quoted
// string, a parenthesised comment, an angle-bracketed address, or a group's
// colon-to-semicolon span.
func splitTopLevel(s string) []string {
	var parts []string
	var cur strings.Builder

	quote := false
	escaped := false
	paren, angle, group := 0, 0, 0

	flush := func() {
		parts = append(parts, cur.String())
		cur.Reset()
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			cur.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' && quote {
			escaped = true
			cur.WriteByte(c)
			continue
		}
		if c == '"' {
			quote = !quote
			cur.WriteByte(c)
			continue
		}
		if quote {
			cur.WriteByte(c)
			continue
		}
		switch c {
		case '(':
			paren++
		case ')':
			if paren > 0 {
				paren--
			}
		case '<':
			angle++
		case '>':
			if angle > 0 {
				angle--
			}
		case ':':
			group++
		case ';':
			if group > 0 {
				group--
			}
		case ',':
			if paren == 0 && angle == 0 && group == 0 {
				flush()
				continue
			}
		}
		cur.WriteByte(c)
	}
	if strings.TrimSpace(cur.String()) != "" {
		flush()
	}
	return parts
}

// parseOne parses a single top-level entry: either a group or a mailbox
// with an optional display name and parenthesised comment.
func parseOne(s string) Address {
	if name, members, ok := extractGroup(s); ok {
		return Address{Name: unquote(strings.TrimSpace(name)), Group: ParseList(members)}
	}

	comment, rest, _ := extractBracketed(s, '(', ')')
	addr, rest2, hasAddr := extractBracketed(rest, '<', '>')
	text := strings.TrimSpace(unquote(strings.TrimSpace(rest2)))
	comment = strings.TrimSpace(comment)

	var a Address
	switch {
	case hasAddr:
		a.Address = strings.TrimSpace(addr)
		a.Name = text
	case looksLikeAddress(text):
		a.Address = text
	default:
		a.Name = text
	}
	if a.Name == "" && comment != "" {
		a.Name = comment
	}
	return a
}

// extractGroup looks for a top-level, unquoted ':' that isn't nested inside
// a comment or address bracket; everything before it is the group name and
// everything after (sans a trailing top-level ';') is the member list.
func extractGroup(s string) (name, members string, ok bool) {
	quote := false
	escaped := false
	paren, angle := 0, 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && quote {
			escaped = true
			continue
		}
		if c == '"' {
			quote = !quote
			continue
		}
		if quote {
			continue
		}
		switch c {
		case '(':
			paren++
		case ')':
			if paren > 0 {
				paren--
			}
		case '<':
			angle++
		case '>':
			if angle > 0 {
				angle--
			}
		case ':':
			if paren == 0 && angle == 0 {
				rest := strings.TrimSpace(s[i+1:])
				rest = strings.TrimSuffix(rest, ";")
				return s[:i], rest, true
			}
		}
	}
	return "", "", false
}

// extractBracketed returns the content of the first top-level (quote-aware,
// non-nested) open/close bracket pair in s, plus s with that span removed.
func extractBracketed(s string, open, close byte) (content, rest string, found bool) {
	quote := false
	escaped := false
	depth := 0
	start := -1

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && quote {
			escaped = true
			continue
		}
		if c == '"' {
			quote = !quote
			continue
		}
		if quote {
			continue
		}
		switch c {
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return s[start+1 : i], s[:start] + " " + s[i+1:], true
				}
			}
		}
	}
	return "", s, false
}

// unquote strips a single pair of surrounding double quotes and resolves
// backslash escapes within them; a value that is not fully quoted is
// returned unchanged.
func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	inner := s[1 : len(s)-1]
	var b strings.Builder
	escaped := false
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// looksLikeAddress is the "bare email inside text" promotion heuristic:
// a single '@' with non-empty local and domain parts and no whitespace.
func looksLikeAddress(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	if strings.Count(s, "@") != 1 {
		return false
	}
	parts := strings.SplitN(s, "@", 2)
	return parts[0] != "" && parts[1] != ""
}
