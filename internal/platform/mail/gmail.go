package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Sender delivers plain text email through the Gmail API using a stored
// refresh token.
type Sender struct {
	srv  *gmail.Service
	from string
}

func NewGmailSender(ctx context.Context, clientID, clientSecret, refreshToken, from string) (*Sender, error) {
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}
	httpClient := config.Client(ctx, &oauth2.Token{RefreshToken: refreshToken})

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Sender{srv: srv, from: from}, nil
}

func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	raw := buildMessage(s.from, to, subject, body)
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := s.srv.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// buildMessage renders an RFC 2822 message. Header values are stripped of
// line breaks and the subject is Q-encoded.
func buildMessage(from, to, subject, body string) []byte {
	clean := strings.NewReplacer("\r", "", "\n", "")
	var b strings.Builder
	if from != "" {
		b.WriteString("From: " + clean.Replace(from) + "\r\n")
	}
	b.WriteString("To: " + clean.Replace(to) + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", clean.Replace(subject)) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
