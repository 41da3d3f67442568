package mailer

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDKIMKeyPair(t *testing.T) {
	t.Run("valid 2048-bit key", func(t *testing.T) {
		privPEM, pubBase64, err := GenerateDKIMKeyPair(2048)
		require.NoError(t, err)

		block, _ := pem.Decode([]byte(privPEM))
		require.NotNil(t, block, "should decode PEM block")
		assert.Equal(t, "RSA PRIVATE KEY", block.Type)

		privKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		require.NoError(t, err)
		assert.Equal(t, 2048, privKey.N.BitLen())

		pubDER, err := base64.StdEncoding.DecodeString(pubBase64)
		require.NoError(t, err)
		pubKeyIface, err := x509.ParsePKIXPublicKey(pubDER)
		require.NoError(t, err)

		pubKey, ok := pubKeyIface.(*rsa.PublicKey)
		require.True(t, ok, "public key should be RSA")
		assert.Equal(t, privKey.PublicKey.N, pubKey.N)
	})

	t.Run("reject key size below 1024", func(t *testing.T) {
		_, _, err := GenerateDKIMKeyPair(512)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 1024 bits")
	})
}

func TestNewDKIMStreamPlugin(t *testing.T) {
	privPEM, _, err := GenerateDKIMKeyPair(1024)
	require.NoError(t, err)

	plugin, err := newDKIMStreamPlugin(DKIMConfig{
		Domain:        "example.com",
		Selector:      "sel1",
		PrivateKeyPEM: privPEM,
	})
	require.NoError(t, err)

	raw := "From: sender@example.com\r\nTo: rcpt@example.com\r\nSubject: hi\r\nMIME-Version: 1.0\r\nContent-Type: text/plain\r\n\r\nbody\r\n"
	r, err := plugin(strings.NewReader(raw))
	require.NoError(t, err)

	signed, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(signed), "DKIM-Signature:")
	assert.Contains(t, string(signed), "d=example.com")
	assert.True(t, strings.HasPrefix(string(signed), "DKIM-Signature:"))
}

func TestParseDKIMPrivateKeyRejectsGarbage(t *testing.T) {
	_, err := parseDKIMPrivateKey("not a pem")
	require.Error(t, err)
}
