package line

import (
	"context"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"

	"github.com/studiokb/linebridge/internal/core"
)

// Channel delivers outbound messages through the LINE Messaging API.
type Channel struct {
	bot *linebot.Client
}

func NewChannel(channelSecret, channelToken string) (*Channel, error) {
	bot, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		return nil, fmt.Errorf("line client: %w", err)
	}
	return &Channel{bot: bot}, nil
}

// ParseRequest validates the webhook signature and decodes the event batch.
func (c *Channel) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return c.bot.ParseRequest(r)
}

// Reply answers the message identified by replyToken.
func (c *Channel) Reply(ctx context.Context, replyToken, text string) error {
	_, err := c.bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	if err != nil {
		return fmt.Errorf("line reply: %w", err)
	}
	return nil
}

// Notify pushes a message to a user outside any reply window.
func (c *Channel) Notify(ctx context.Context, recipientID, text string) error {
	_, err := c.bot.PushMessage(recipientID, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	if err != nil {
		return fmt.Errorf("line push: %w", err)
	}
	return nil
}

var _ core.MessageChannel = (*Channel)(nil)
