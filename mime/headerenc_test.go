package mime

import (
	"testing"

	"github.com/mailit-dev/gomail/address"
	"github.com/stretchr/testify/assert"
)

func TestEncodeAddressList_PlainASCII(t *testing.T) {
	out := EncodeAddressList([]address.Address{{Name: "Alice", Address: "alice@example.com"}})
	assert.Equal(t, "Alice <alice@example.com>", out)
}

func TestEncodeAddressList_EncodesNonASCIIName(t *testing.T) {
	out := EncodeAddressList([]address.Address{{Name: "Jöhn", Address: "john@example.com"}})
	assert.Contains(t, out, "=?UTF-8?")
	assert.Contains(t, out, "<john@example.com>")
}

func TestEncodeAddressList_IDNADomain(t *testing.T) {
	out := EncodeAddressList([]address.Address{{Address: "user@mü.example"}})
	assert.Contains(t, out, "@xn--")
}

func TestEncodeAddressList_Group(t *testing.T) {
	out := EncodeAddressList([]address.Address{{
		Name: "Friends",
		Group: []address.Address{
			{Address: "a@example.com"},
			{Address: "b@example.com"},
		},
	}})
	assert.Equal(t, "Friends: a@example.com, b@example.com;", out)
}

func TestEncodeContentTypeHeader_WithLegacyNameAlias(t *testing.T) {
	out := EncodeContentTypeHeader("application/pdf", map[string]string{
		"name": "résumé with a very long filename that forces continuation.pdf",
	})
	assert.Contains(t, out, "name*0*=utf-8''")
	assert.Contains(t, out, `name="`)
	// The legacy alias is RFC 2047-encoded so the header stays 7-bit clean.
	assert.Contains(t, out, "=?UTF-8?")
	for i := 0; i < len(out); i++ {
		if out[i] >= 0x80 {
			t.Fatalf("non-ASCII byte %#x at offset %d in %q", out[i], i, out)
		}
	}
}

func TestEncodeContentTypeHeader_Simple(t *testing.T) {
	out := EncodeContentTypeHeader("text/plain", map[string]string{"charset": "utf-8"})
	assert.Equal(t, "text/plain; charset=utf-8", out)
}

func TestIsAddressHeader(t *testing.T) {
	assert.True(t, IsAddressHeader("to"))
	assert.True(t, IsAddressHeader("BCC"))
	assert.False(t, IsAddressHeader("Subject"))
}
