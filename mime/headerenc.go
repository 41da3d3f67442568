package mime

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mailit-dev/gomail/address"
	"github.com/mailit-dev/gomail/codec"
)

// addressHeaders names the header fields whose values are address lists.
var addressHeaders = map[string]bool{
	"From": true, "Sender": true, "To": true, "Cc": true, "Bcc": true, "Reply-To": true,
}

// EncodeAddressList renders a list of addresses into a single RFC 5322
// header value, RFC 2047-encoding any non-ASCII display names and
// IDNA-encoding non-ASCII domains.
func EncodeAddressList(list []address.Address) string {
	parts := make([]string, 0, len(list))
	for _, a := range list {
		parts = append(parts, encodeOneAddress(a))
	}
	return strings.Join(parts, ", ")
}

func encodeOneAddress(a address.Address) string {
	if a.IsGroup() {
		return fmt.Sprintf("%s: %s;", codec.EncodeWords(a.Name, codec.KindAuto, 75), EncodeAddressList(a.Group))
	}
	addr := encodeAddrSpec(a.Address)
	if a.Name == "" {
		return addr
	}
	name := codec.EncodeWords(a.Name, codec.KindAuto, 75)
	if needsQuoting(a.Name) && name == a.Name {
		name = quoteDisplayName(a.Name)
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}

func encodeAddrSpec(addr string) string {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return addr
	}
	local, domain := addr[:at], addr[at+1:]
	return local + "@" + codec.EncodeDomain(domain)
}

func needsQuoting(s string) bool {
	return strings.ContainsAny(s, `",;<>()@\`)
}

func quoteDisplayName(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

// EncodeDate formats t per RFC 5322 §3.3 (e.g. "Mon, 02 Jan 2006 15:04:05 -0700").
func EncodeDate(t time.Time) string {
	return t.Format("Mon, 02 Jan 2006 15:04:05 -0700")
}

// EncodeContentTypeHeader formats a media type plus its parameters as a
// single Content-Type header value, using RFC 2231 continuation for any
// parameter value that needs it. For "name", a plain legacy alias
// parameter is emitted alongside the RFC 2231 form for older clients.
func EncodeContentTypeHeader(mediaType string, params map[string]string) string {
	return encodeParamHeader(mediaType, params, "name")
}

// EncodeDispositionHeader formats a disposition type ("inline"/
// "attachment") plus parameters, with the same legacy-alias handling as
// EncodeContentTypeHeader but for "filename".
func EncodeDispositionHeader(disposition string, params map[string]string) string {
	return encodeParamHeader(disposition, params, "filename")
}

func encodeParamHeader(value string, params map[string]string, legacyAliasKey string) string {
	var b strings.Builder
	b.WriteString(value)
	for _, k := range orderedKeys(params) {
		v := params[k]
		if v == "" {
			continue
		}
		b.WriteString("; ")
		encoded := codec.EncodeParam(k, v)
		b.WriteString(encoded)
		if k == legacyAliasKey && strings.Contains(encoded, "*0*=") {
			// The legacy alias must stay 7-bit clean, so any non-ASCII
			// span is RFC 2047-encoded rather than written raw.
			legacy := codec.EncodeWords(v, codec.KindAuto, 75)
			b.WriteString("; ")
			b.WriteString(legacyAliasKey)
			b.WriteString(`="`)
			b.WriteString(strings.ReplaceAll(legacy, `"`, `\"`))
			b.WriteString(`"`)
		}
	}
	return b.String()
}

func orderedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// Deterministic output: charset/boundary/name first (common reading
	// order), everything else alphabetical after.
	priority := map[string]int{"charset": 0, "boundary": 1, "name": 2, "filename": 2}
	rank := func(k string) int {
		if p, ok := priority[k]; ok {
			return p
		}
		return len(priority)
	}
	sort.Slice(out, func(a, b int) bool {
		if rank(out[a]) != rank(out[b]) {
			return rank(out[a]) < rank(out[b])
		}
		return out[a] < out[b]
	})
	return out
}

// EncodeGenericHeader applies the default RFC 2047 policy to any header not
// covered by a more specific rule.
func EncodeGenericHeader(value string) string {
	return codec.EncodeWords(value, codec.KindAuto, 75)
}

// IsAddressHeader reports whether key names an address-list header.
func IsAddressHeader(key string) bool {
	return addressHeaders[NormalizeHeaderKey(key)]
}

// EncodeReferences joins a list of Message-IDs (each already including its
// angle brackets) with a single space, as required for folded References/
// In-Reply-To headers.
func EncodeReferences(ids []string) string {
	return strings.Join(ids, " ")
}
