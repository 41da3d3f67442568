package smtp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	e := newError(ECONNECTION, "CONNECT", inner)
	assert.ErrorIs(t, e, inner)
}

func TestClassifyResponseCode(t *testing.T) {
	assert.Equal(t, EAUTH, classifyResponseCode("AUTH", 535))
	assert.Equal(t, EENVELOPE, classifyResponseCode("RCPT", 550))
	assert.Equal(t, EENVELOPE, classifyResponseCode("MAIL", 450))
	assert.Equal(t, EMESSAGE, classifyResponseCode("DATA", 552))
}

func TestResponseError_Message(t *testing.T) {
	e := responseError(EENVELOPE, "RCPT", 550, "mailbox unavailable")
	assert.Contains(t, e.Error(), "550")
	assert.Contains(t, e.Error(), "mailbox unavailable")
}
