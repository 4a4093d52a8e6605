package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	args := m.Called(ctx, to, subject, rawMessage)
	return args.Error(0)
}

func TestBuildMessage(t *testing.T) {
	raw := BuildMessage("noreply@market.test", []string{"a@example.com"}, "Your ad is live", "ad_approved", "Hello\nthere")

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Your ad is live", msg.Header.Get("Subject"))
	assert.Equal(t, "ad_approved", msg.Header.Get(TemplateHeader))
	body, err := io.ReadAll(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, "Hello\r\nthere", string(body))
}

func TestCompositeEmailSender_CallsAllAndJoinsErrors(t *testing.T) {
	ctx := context.Background()
	to := []string{"a@example.com"}
	raw := []byte("raw")

	failing := new(mockSender)
	working := new(mockSender)
	failing.On("Send", ctx, to, "subj", raw).Return(errors.New("relay down")).Once()
	working.On("Send", ctx, to, "subj", raw).Return(nil).Once()

	cs := NewCompositeEmailSender(failing, nil)
	cs.AddSender(working)
	err := cs.Send(ctx, to, "subj", raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")
	failing.AssertExpectations(t)
	working.AssertExpectations(t)

	assert.Error(t, NewCompositeEmailSender().Send(ctx, to, "subj", raw))
}

func TestFileEmailSender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "emails.log")
	sender, err := NewFileEmailSender(path)
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background(), []string{"a@example.com"}, "First", []byte("body one")))
	require.NoError(t, sender.Send(context.Background(), []string{"b@example.com"}, "Second", []byte("body two")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Subject: First")
	assert.Contains(t, string(content), "body two")

	_, err = NewFileEmailSender("  ")
	assert.Error(t, err)
}

func TestMockEmailKey(t *testing.T) {
	assert.Equal(t, "mockemail:user@example.com:welcome", MockEmailKey("User@Example.com", "welcome"))
}
