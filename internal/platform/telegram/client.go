package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of the bot API the care-team channel needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client posts messages and documents to one care-team chat.
type Client struct {
	api    Sender
	chatID int64
}

func NewClient(token string, chatID int64) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return NewClientWithSender(api, chatID), nil
}

func NewClientWithSender(api Sender, chatID int64) *Client {
	return &Client{api: api, chatID: chatID}
}

// SendMessage posts plain text. Markdown is not used so user supplied text
// never breaks parsing.
func (c *Client) SendMessage(text string) error {
	if _, err := c.api.Send(tgbotapi.NewMessage(c.chatID, text)); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func (c *Client) SendDocument(name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(c.chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	if _, err := c.api.Send(doc); err != nil {
		return fmt.Errorf("failed to send telegram document: %w", err)
	}
	return nil
}
