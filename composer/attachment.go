package composer

import "strings"

// extToMediaType covers the handful of media types attachments commonly
// arrive as without a filename extension; it is deliberately small rather
// than a full MIME-type lookup table.
var extToMediaType = map[string]string{
	"text/plain":               ".txt",
	"text/html":                ".html",
	"text/csv":                 ".csv",
	"text/calendar":            ".ics",
	"application/pdf":          ".pdf",
	"application/json":         ".json",
	"application/zip":          ".zip",
	"application/ics":          ".ics",
	"application/octet-stream": ".bin",
	"image/png":                ".png",
	"image/jpeg":               ".jpg",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/svg+xml":            ".svg",
}

// extensionForContentType infers a filename extension from a media type
// when the caller supplied no filename and the URL/path has none either.
func extensionForContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return extToMediaType[strings.TrimSpace(ct)]
}
