package mail_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodle-app/foodle/pkg/mail"
)

func TestBuild(t *testing.T) {
	msg, err := mail.To("student@campus.edu").
		UseConfig(mail.SMTP{From: "orders@foodle.local"}).
		Subject("Your order is ready").
		Text("Show code 0420 at the counter.").
		Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "student@campus.edu")
	assert.Contains(t, raw, "Your order is ready")
	assert.Contains(t, raw, "0420")
}

func TestBuild_RejectsBadAddress(t *testing.T) {
	_, err := mail.To("not an address").
		UseConfig(mail.SMTP{From: "orders@foodle.local"}).
		Build()
	assert.Error(t, err)
}

func TestSend_Unconfigured(t *testing.T) {
	err := mail.To("a@b.c").UseConfig(mail.SMTP{}).Send(context.Background())
	assert.ErrorIs(t, err, mail.ErrNotConfigured)
}
