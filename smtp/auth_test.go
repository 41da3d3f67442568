package smtp

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate_Plain(t *testing.T) {
	c, server := pipeClient([]string{"235 2.7.0 authenticated\r\n"})
	defer server.Close()

	err := c.Authenticate(Credentials{Method: "PLAIN", Username: "bob", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, StageAuthenticated, c.Stage())
}

func TestAuthenticate_Login(t *testing.T) {
	c, server := pipeClient([]string{
		"334 " + base64.StdEncoding.EncodeToString([]byte("Username:")) + "\r\n",
		"235 2.7.0 authenticated\r\n",
	})
	defer server.Close()

	err := c.Authenticate(Credentials{Method: "LOGIN", Username: "bob", Password: "secret"})
	require.NoError(t, err)
}

func TestAuthenticate_CRAMMD5(t *testing.T) {
	challenge := base64.StdEncoding.EncodeToString([]byte("<1896.697170952@example.test>"))
	c, server := pipeClient([]string{
		"334 " + challenge + "\r\n",
		"235 2.7.0 authenticated\r\n",
	})
	defer server.Close()

	err := c.Authenticate(Credentials{Method: "CRAM-MD5", Username: "bob", Password: "secret"})
	require.NoError(t, err)
}

func TestAuthenticate_XOAUTH2(t *testing.T) {
	c, server := pipeClient([]string{"235 2.7.0 authenticated\r\n"})
	defer server.Close()

	err := c.Authenticate(Credentials{OAuth2Token: "tok-123", Username: "bob"})
	require.NoError(t, err)
}

func TestAuthenticate_AutoSelectsServerMechanism(t *testing.T) {
	c, server := pipeClient([]string{
		"334 " + base64.StdEncoding.EncodeToString([]byte("Password:")) + "\r\n",
		"235 2.7.0 authenticated\r\n",
	})
	defer server.Close()
	c.authMechs = []string{"LOGIN", "PLAIN"}

	err := c.Authenticate(Credentials{Username: "bob", Password: "secret"})
	require.NoError(t, err)
}

func TestAuthenticate_RejectedCredentials(t *testing.T) {
	c, server := pipeClient([]string{"535 5.7.8 authentication failed\r\n"})
	defer server.Close()

	err := c.Authenticate(Credentials{Method: "PLAIN", Username: "bob", Password: "wrong"})
	require.Error(t, err)
	var smtpErr *Error
	assert := assert.New(t)
	assert.ErrorAs(err, &smtpErr)
	assert.Equal(EAUTH, smtpErr.ErrCode)
}
