package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"askbot/internal/logging"
)

// Message is one inbound chat message.
type Message struct {
	UserID string
	ChatID string
	Text   string
}

// Transport delivers inbound messages and accepts outbound text and typing
// signals. Mention handling is the transport's job; the pipeline only sees
// clean-ish text.
type Transport interface {
	// Poll blocks, sending inbound messages to out until ctx is cancelled.
	Poll(ctx context.Context, out chan<- Message) error
	// Send delivers text to a chat.
	Send(ctx context.Context, chatID, text string) error
	// Typing signals that a reply is being composed. Best effort.
	Typing(ctx context.Context, chatID string)
}

// =============================================================================
// TELEGRAM LONG-POLL TRANSPORT
// =============================================================================

// TelegramTransport speaks the Telegram Bot API via long polling.
type TelegramTransport struct {
	token        string
	baseURL      string
	botMention   string
	pollInterval time.Duration
	httpClient   *http.Client
	offset       int64
}

// TelegramConfig configures the transport.
type TelegramConfig struct {
	Token        string
	BaseURL      string
	BotMention   string // e.g. "@askbot"; in group chats only mentions are answered
	PollInterval time.Duration
}

// NewTelegramTransport creates the transport. The token is required.
func NewTelegramTransport(cfg TelegramConfig) (*TelegramTransport, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.telegram.org"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &TelegramTransport{
		token:        cfg.Token,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		botMention:   cfg.BotMention,
		pollInterval: cfg.PollInterval,
		httpClient:   &http.Client{Timeout: 35 * time.Second},
	}, nil
}

type tgUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		From *struct {
			ID int64 `json:"id"`
		} `json:"from"`
		Chat struct {
			ID   int64  `json:"id"`
			Type string `json:"type"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

type tgUpdatesResponse struct {
	OK     bool       `json:"ok"`
	Result []tgUpdate `json:"result"`
}

// Poll long-polls getUpdates, forwarding messages to out. Group messages are
// only forwarded when they mention the bot; the mention itself is stripped
// before forwarding.
func (t *TelegramTransport) Poll(ctx context.Context, out chan<- Message) error {
	logging.Transport("telegram long-poll started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := t.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Get(logging.CategoryTransport).Warn("getUpdates failed: %v", err)
			select {
			case <-time.After(t.pollInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= t.offset {
				t.offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.Text == "" || u.Message.From == nil {
				continue
			}

			text := u.Message.Text
			isGroup := u.Message.Chat.Type != "private"
			if isGroup {
				if t.botMention == "" || !strings.Contains(text, t.botMention) {
					continue
				}
				text = strings.TrimSpace(strings.ReplaceAll(text, t.botMention, ""))
			}

			msg := Message{
				UserID: strconv.FormatInt(u.Message.From.ID, 10),
				ChatID: strconv.FormatInt(u.Message.Chat.ID, 10),
				Text:   text,
			}

			select {
			case out <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (t *TelegramTransport) getUpdates(ctx context.Context) ([]tgUpdate, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(t.offset, 10))
	params.Set("timeout", "30")

	body, err := t.call(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}

	var parsed tgUpdatesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse updates: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram returned not-ok")
	}
	return parsed.Result, nil
}

// Send delivers text to a chat.
func (t *TelegramTransport) Send(ctx context.Context, chatID, text string) error {
	params := url.Values{}
	params.Set("chat_id", chatID)
	params.Set("text", text)

	if _, err := t.call(ctx, "sendMessage", params); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Typing emits a typing chat action. Failures are logged, never surfaced.
func (t *TelegramTransport) Typing(ctx context.Context, chatID string) {
	params := url.Values{}
	params.Set("chat_id", chatID)
	params.Set("action", "typing")

	if _, err := t.call(ctx, "sendChatAction", params); err != nil {
		logging.Get(logging.CategoryTransport).Debug("typing signal failed: %v", err)
	}
}

func (t *TelegramTransport) call(ctx context.Context, method string, params url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram API status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
