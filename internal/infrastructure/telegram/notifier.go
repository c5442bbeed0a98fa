// Package telegram delivers pipeline run reports to a chat via the bot API.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/d1freeez14/neuro-tender/internal/domain"
	"github.com/d1freeez14/neuro-tender/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier renders a run report and posts it to a Telegram chat.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// PublishReport formats the run outcome and posts it as a Markdown message.
func (n *Notifier) PublishReport(ctx context.Context, report domain.RunReport) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", formatReport(report))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// formatReport renders one line per pipeline counter, in Russian, the way
// the chat's operators read it.
func formatReport(report domain.RunReport) string {
	var b strings.Builder
	b.WriteString("*Обработка тендеров завершена*\n")
	lines := []struct {
		label string
		value int
	}{
		{"Обработано", report.Stats.TotalProcessed},
		{"Прошло отбор по названию", report.Stats.Stage1Success},
		{"Принято после анализа", report.Stats.Stage2Success},
		{"Загружено в СЭД", report.Stats.UploadsSuccessful},
		{"Ошибок", report.Stats.Errors},
	}
	for _, line := range lines {
		fmt.Fprintf(&b, "%s: %d\n", line.label, line.value)
	}
	fmt.Fprintf(&b, "Время: %s", report.Elapsed.Round(time.Second))
	return b.String()
}
