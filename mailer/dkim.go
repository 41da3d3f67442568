package mailer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"

	"github.com/emersion/go-msgauth/dkim"
)

// defaultDKIMHeaderKeys is the conventional set of headers worth
// covering by the signature.
var defaultDKIMHeaderKeys = []string{
	"From", "To", "Subject", "Date", "Message-ID", "MIME-Version", "Content-Type",
}

// DKIMConfig configures the post-processing signing stream plugin.
// Only signing is implemented; verification of inbound mail is out of
// scope for a sending library.
type DKIMConfig struct {
	Domain        string
	Selector      string
	PrivateKeyPEM string
	HeaderKeys    []string // defaults to defaultDKIMHeaderKeys
}

// newDKIMStreamPlugin parses cfg's private key once and returns a
// StreamPlugin that signs the message as it streams through, wrapping
// go-msgauth/dkim.Sign (which reads and hashes the whole message
// synchronously) in a pipe goroutine so the Mailer's pipeline stays a
// plain io.Reader chain.
func newDKIMStreamPlugin(cfg DKIMConfig) (StreamPlugin, error) {
	key, err := parseDKIMPrivateKey(cfg.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}
	headerKeys := cfg.HeaderKeys
	if len(headerKeys) == 0 {
		headerKeys = defaultDKIMHeaderKeys
	}
	opts := &dkim.SignOptions{
		Domain:     cfg.Domain,
		Selector:   cfg.Selector,
		Signer:     key,
		Hash:       crypto.SHA256,
		HeaderKeys: headerKeys,
	}

	return func(r io.Reader) (io.Reader, error) {
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(dkim.Sign(pw, r, opts))
		}()
		return pr, nil
	}, nil
}

func parseDKIMPrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("mailer: decode DKIM private key PEM")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("mailer: parse DKIM private key: %w", err)
	}
	return key, nil
}

// GenerateDKIMKeyPair generates a fresh RSA key pair for DKIM signing,
// returning the private key in PEM form and the public key as base64 DER
// suitable for a DNS TXT record. Key storage is the caller's problem;
// this library has no persistence layer.
func GenerateDKIMKeyPair(bits int) (privateKeyPEM string, publicKeyBase64 string, err error) {
	if bits < 1024 {
		return "", "", fmt.Errorf("mailer: DKIM key size must be at least 1024 bits, got %d", bits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", "", fmt.Errorf("mailer: generate RSA key: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("mailer: marshal DKIM public key: %w", err)
	}
	return string(privPEM), base64.StdEncoding.EncodeToString(pubDER), nil
}
