package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "vakit/internal/log"
)

// ErrDispatchFailed wraps any delivery failure. It is logged and never
// retried; the reminder stays marked as fired.
var ErrDispatchFailed = errors.New("notification dispatch failed")

// Dispatcher delivers one reminder.
type Dispatcher interface {
	Dispatch(ctx context.Context, r Reminder) error
}

// LogDispatcher writes reminders to the process log. It is the dispatcher
// used when no other channel is configured.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, r Reminder) error {
	appLog.Info("reminder", "id", r.ID.String(), "title", r.Title, "body", r.Body)
	return nil
}

// Multi dispatches to every dispatcher and joins the failures.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, r Reminder) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DispatchAll hands every reminder to d. Failures are logged and do not
// stop later reminders. It returns the number delivered.
func DispatchAll(ctx context.Context, d Dispatcher, reminders []Reminder) int {
	sent := 0
	for _, r := range reminders {
		if err := d.Dispatch(ctx, r); err != nil {
			appLog.Error("reminder dispatch failed", err, "key", r.Key.String(), "id", r.ID.String())
			continue
		}
		sent++
	}
	return sent
}

const telegramAPI = "https://api.telegram.org"

// Telegram sends reminders through the Telegram Bot API.
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// NewTelegram creates a Telegram dispatcher. An empty baseURL means the
// public Bot API.
func NewTelegram(botToken, chatID, baseURL string) *Telegram {
	if baseURL == "" {
		baseURL = telegramAPI
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type telegramSendRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (t *Telegram) Dispatch(ctx context.Context, r Reminder) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	body, err := json.Marshal(telegramSendRequest{
		ChatID: t.chatID,
		Text:   r.Title + "\n" + r.Body,
	})
	if err != nil {
		return fmt.Errorf("%w: marshal telegram request: %v", ErrDispatchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send telegram message: %w", ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read telegram response: %w", ErrDispatchFailed, err)
	}

	var tgResp telegramResponse
	if err := json.Unmarshal(respBody, &tgResp); err != nil {
		return fmt.Errorf("%w: parse telegram response (status %d): %w", ErrDispatchFailed, resp.StatusCode, err)
	}
	if !tgResp.OK {
		return fmt.Errorf("%w: telegram API error: %s", ErrDispatchFailed, tgResp.Description)
	}
	return nil
}
