package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Morwran/yagpt"
)

// Tokens are renewed this long before they expire.
const iamRefreshMargin = 10 * time.Minute

// iamMinter exchanges the OAuth token for short-lived IAM tokens.
type iamMinter interface {
	CreateWithCtx(ctx context.Context) (*yagpt.IamTokenResponse, error)
}

// YandexClient talks to YandexGPT. The IAM token is minted on first use and
// renewed whenever it is close to expiry.
type YandexClient struct {
	ya  yagpt.YaGPTFace
	iam iamMinter
	now func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewYandex(oauthToken, folderID string) (*YandexClient, error) {
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init yandex iam: %w", err)
	}
	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to init yagpt: %w", err)
	}

	c := newYandexClient(ya, iam)
	// Reject a bad OAuth token at startup.
	if _, err := c.iamToken(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func newYandexClient(ya yagpt.YaGPTFace, iam iamMinter) *YandexClient {
	return &YandexClient{ya: ya, iam: iam, now: time.Now}
}

func (c *YandexClient) iamToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt.Add(-iamRefreshMargin)) {
		return c.token, nil
	}
	resp, err := c.iam.CreateWithCtx(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create iam token: %w", err)
	}
	c.token = resp.IamToken
	c.expiresAt = resp.ExpiresAt
	if c.expiresAt.IsZero() {
		c.expiresAt = c.now().Add(time.Hour)
	}
	return c.token, nil
}

func (c *YandexClient) Generate(ctx context.Context, prompt string, history []Message) (string, error) {
	token, err := c.iamToken(ctx)
	if err != nil {
		return "", err
	}

	messages := make([]yagpt.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, yaMessage(m.Role, m.Content))
	}
	messages = append(messages, yaMessage("user", prompt))

	resp, err := c.ya.CompletionWithCtx(ctx, token, messages)
	if err != nil {
		return "", fmt.Errorf("yagpt completion failed: %w", err)
	}
	if resp == nil || len(resp.Alternatives) == 0 {
		return "", fmt.Errorf("yagpt returned empty response")
	}
	return resp.Alternatives[0].Message.Content, nil
}

func yaMessage(role, content string) yagpt.Message {
	switch role {
	case "assistant":
		return yagpt.Message{Role: "assistant", Content: content}
	case "system":
		return yagpt.Message{Role: "system", Content: content}
	default:
		return yagpt.Message{Role: "user", Content: content}
	}
}
