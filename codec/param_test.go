package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeParam_ShortASCIIIsPlain(t *testing.T) {
	assert.Equal(t, `filename=report.pdf`, EncodeParam("filename", "report.pdf"))
}

func TestEncodeParam_QuotesSpecials(t *testing.T) {
	assert.Equal(t, `filename="my report.pdf"`, EncodeParam("filename", "my report.pdf"))
}

func TestEncodeParam_ContinuationForNonASCII(t *testing.T) {
	out := EncodeParam("filename", "résumé with spaces and a long name.pdf")
	assert.Contains(t, out, "filename*0*=utf-8''")
	assert.Contains(t, out, "filename*1*=")
}

func TestDecodeParams_CoalescesContinuation(t *testing.T) {
	raw := map[string]string{
		"filename*0*": "utf-8''r%C3%A9sum%C3%A9",
		"filename*1*": "%20final.pdf",
	}
	out := DecodeParams(raw)
	assert.Equal(t, "résumé final.pdf", out["filename"])
}

func TestDecodeParams_PassesThroughPlain(t *testing.T) {
	raw := map[string]string{"name": "plain.txt"}
	out := DecodeParams(raw)
	assert.Equal(t, "plain.txt", out["name"])
}

func TestEncodeParam_NeverSplitsPercentEscape(t *testing.T) {
	original := strings.Repeat("é", 60)
	out := EncodeParam("filename", original)

	raw := make(map[string]string)
	for _, seg := range strings.Split(out, "; ") {
		eq := strings.IndexByte(seg, '=')
		raw[seg[:eq]] = seg[eq+1:]
	}
	decoded := DecodeParams(raw)
	assert.Equal(t, original, decoded["filename"])
}
