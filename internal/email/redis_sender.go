package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// MockEmailTTL is how long a captured email stays readable.
const MockEmailTTL = 5 * time.Minute

// MockEmailKey is the Redis key of the last captured email of a type for a recipient.
func MockEmailKey(to, templateID string) string {
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), templateID)
}

// MockEmail is what RedisSender stores.
type MockEmail struct {
	To         string `json:"to"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	TemplateID string `json:"template_id"`
	Body       string `json:"body"`
	SentAt     string `json:"sent_at"`
}

// RedisSender captures emails in Redis instead of sending them, so that
// integration tests can read them back through the service API.
type RedisSender struct {
	client *redis.Client
	from   string
}

func NewRedisSender(client *redis.Client, from string) *RedisSender {
	return &RedisSender{client: client, from: from}
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	templateID := "unknown"
	body := string(rawMessage)
	if msg, err := mail.ReadMessage(bytes.NewReader(rawMessage)); err == nil {
		if id := msg.Header.Get(TemplateHeader); id != "" {
			templateID = id
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(msg.Body); err == nil {
			body = buf.String()
		}
	}

	for _, recipient := range to {
		data, err := json.Marshal(MockEmail{
			To:         recipient,
			From:       s.from,
			Subject:    subject,
			TemplateID: templateID,
			Body:       body,
			SentAt:     time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal email data: %w", err)
		}
		key := MockEmailKey(recipient, templateID)
		if err := s.client.Set(ctx, key, data, MockEmailTTL).Err(); err != nil {
			return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
		}
		log.WithFields(log.Fields{"key": key, "subject": subject}).Info("Mock email stored in Redis")
	}
	return nil
}
