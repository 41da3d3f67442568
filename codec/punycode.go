package codec

import "golang.org/x/net/idna"

// idnaProfile mirrors the lenient registration profile mail clients use:
// it accepts already-ASCII domains unchanged and only transforms labels
// containing non-ASCII characters.
var idnaProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
)

// EncodeDomain converts an internationalised domain name to its ASCII
// ("xn--...") form for SMTP envelopes and header output. Domains that are
// already ASCII, or that fail IDNA processing (e.g. a bare IP literal),
// are returned unchanged.
func EncodeDomain(domain string) string {
	if isASCII(domain) {
		return domain
	}
	ascii, err := idnaProfile.ToASCII(domain)
	if err != nil {
		return domain
	}
	return ascii
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}
