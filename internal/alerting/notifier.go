package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"strategy-alerts/internal/alert"
)

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, rec alert.Record) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, alert.Record) error { return nil }

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, rec alert.Record) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(rec),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Int64("alert_id", rec.ID).
		Str("strategy", rec.StrategyName).
		Str("trade_type", rec.TradeType).
		Msg("告警已发送 (Telegram)")
	return nil
}

// RenderMessage formats a stored alert as a plain-text message.
func RenderMessage(rec alert.Record) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[%s] %s %s\n", rec.StrategyName, strings.ToUpper(rec.TradeType), rec.Contract))
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", rec.Timestamp.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Quantity: %s\n", rec.Quantity.String()))
	builder.WriteString(fmt.Sprintf("Price: %s\n", rec.Price.String()))
	if rec.ID > 0 {
		builder.WriteString(fmt.Sprintf("ID: %d\n", rec.ID))
	}
	return builder.String()
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = Nop{}
)
