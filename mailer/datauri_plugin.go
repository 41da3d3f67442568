package mailer

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mailit-dev/gomail/composer"
	"github.com/mailit-dev/gomail/mime"
)

// dataURLImgSrc matches an <img src="data:..."> attribute value. The
// pattern is intentionally simple (it does not parse full HTML); a
// capped regexp scan is enough, not a DOM rewrite.
var dataURLImgSrc = regexp.MustCompile(`(?i)(src\s*=\s*["'])(data:[^"']+)(["'])`)

// maxDataURLScans caps how many data: images a single message rewrites,
// avoiding quadratic blow-up on large HTML bodies with many inline
// images.
const maxDataURLScans = 64

// RewriteDataURLImages is the built-in compile plugin: when md.AttachDataURLs
// is set, every inline data: image in md.HTML is extracted into a new
// attachment with a generated cid and the src is rewritten to "cid:<id>".
func RewriteDataURLImages(md *composer.MailDescription) error {
	if !md.AttachDataURLs || md.HTML == "" || !needsRewrite(md.HTML) {
		return nil
	}
	md.HTML = rewriteDataURLs(md.HTML, &md.Attachments)
	return nil
}

func rewriteDataURLs(html string, attachments *[]composer.Attachment) string {
	scans := 0
	return dataURLImgSrc.ReplaceAllStringFunc(html, func(match string) string {
		if scans >= maxDataURLScans {
			return match
		}
		scans++
		sub := dataURLImgSrc.FindStringSubmatch(match)
		if sub == nil {
			return match
		}
		prefix, dataURI, suffix := sub[1], sub[2], sub[3]

		mediaType, _, _, err := mime.ParseDataURI(dataURI)
		if err != nil {
			return match
		}
		cid := uuid.New().String()
		*attachments = append(*attachments, composer.Attachment{
			Content:     mime.ContentSpec{DataURI: dataURI},
			ContentType: mediaType,
			CID:         cid,
		})
		return prefix + "cid:" + cid + suffix
	})
}

// needsRewrite is a cheap pre-check so callers can skip the regexp pass
// entirely on HTML bodies with no inline images at all.
func needsRewrite(html string) bool {
	return strings.Contains(html, "data:")
}
