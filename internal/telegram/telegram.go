package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trade-relay-bot/internal/api"
	"trade-relay-bot/internal/dispatch"
	"trade-relay-bot/internal/logger"
)

const retryPause = 3 * time.Second

// Handler answers one command with one reply.
type Handler interface {
	Handle(ctx context.Context, cmd dispatch.Command) string
}

type Params struct {
	Token       string
	APIBase     string
	PollTimeout time.Duration
}

// Bot long-polls the Bot API and feeds commands to the handler strictly in
// arrival order.
type Bot struct {
	client *api.Client
	p      Params
	h      Handler
	offset int64
	pause  time.Duration
}

type envelope struct {
	OK          bool     `json:"ok"`
	Description string   `json:"description"`
	Result      []update `json:"result"`
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message"`
}

type message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

type sendRequest struct {
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}

func New(p Params, h Handler) *Bot {
	if p.PollTimeout <= 0 {
		p.PollTimeout = 30 * time.Second
	}
	client := api.NewClient(
		api.WithBaseURL(strings.TrimRight(p.APIBase, "/")+"/bot"+p.Token),
		api.WithTimeout(p.PollTimeout+10*time.Second),
		api.WithLogging(true),
	)
	return &Bot{client: client, p: p, h: h, pause: retryPause}
}

// Run polls until ctx is done. Poll failures are logged and retried.
func (b *Bot) Run(ctx context.Context) error {
	logger.Info(ctx, "Telegram polling started", "poll_timeout", b.p.PollTimeout.String())

	for {
		updates, err := b.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Telegram polling stopped")
				return nil
			}
			logger.Warn(ctx, "Telegram poll failed", "error", err)
			select {
			case <-time.After(b.pause):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		for _, u := range updates {
			b.offset = u.UpdateID + 1
			b.process(ctx, u)
		}
	}
}

func (b *Bot) poll(ctx context.Context) ([]update, error) {
	q := url.Values{}
	q.Set("timeout", strconv.Itoa(int(b.p.PollTimeout.Seconds())))
	q.Set("allowed_updates", `["message"]`)
	if b.offset > 0 {
		q.Set("offset", strconv.FormatInt(b.offset, 10))
	}

	resp, err := b.client.GET(ctx, "/getUpdates?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := resp.ParseJSON(&env); err != nil {
		return nil, err
	}
	if !env.OK {
		return nil, fmt.Errorf("getUpdates: %s", env.Description)
	}
	return env.Result, nil
}

func (b *Bot) process(ctx context.Context, u update) {
	if u.Message == nil {
		return
	}
	name, args, ok := ParseCommand(u.Message.Text)
	if !ok {
		return
	}

	chatID := u.Message.Chat.ID
	reply := b.h.Handle(ctx, dispatch.Command{
		Caller: strconv.FormatInt(chatID, 10),
		Name:   name,
		Args:   args,
	})

	if err := b.send(ctx, chatID, u.Message.MessageID, reply); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send reply", err, "chat_id", chatID, "command", name)
	}
}

func (b *Bot) send(ctx context.Context, chatID, replyTo int64, text string) error {
	req := api.NewRequest(http.MethodPost, "/sendMessage").
		WithContext(ctx).
		WithBody(sendRequest{ChatID: chatID, Text: text, ReplyToMessageID: replyTo})

	resp, err := b.client.DoWithRetry(req, &api.RetryConfig{MaxAttempts: 3, InitialWait: 500 * time.Millisecond, MaxWait: 2 * time.Second})
	if err != nil {
		return err
	}

	var env struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := resp.ParseJSON(&env); err != nil {
		return err
	}
	if !env.OK {
		return errors.New("sendMessage: " + env.Description)
	}
	return nil
}

// ParseCommand splits "/name arg1 arg2" into its parts. Text not starting
// with a slash is not a command.
func ParseCommand(text string) (name string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") || len(fields[0]) == 1 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}
