package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/d1freeez14/neuro-tender/internal/domain"
)

func TestPublishReportSendsFormattedMessage(t *testing.T) {
	t.Parallel()

	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken-123/sendMessage" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = r.PostForm
	}))
	defer srv.Close()

	notifier := NewNotifier("token-123", "chat-42")
	notifier.apiBase = srv.URL

	report := domain.RunReport{
		Stats: domain.ProcessingStats{
			TotalProcessed:    10,
			Stage1Success:     3,
			Stage2Success:     1,
			UploadsSuccessful: 1,
			Errors:            2,
		},
		Elapsed: 90 * time.Second,
	}
	if err := notifier.PublishReport(context.Background(), report); err != nil {
		t.Fatalf("PublishReport returned error: %v", err)
	}

	if got := form["chat_id"]; len(got) != 1 || got[0] != "chat-42" {
		t.Fatalf("unexpected chat_id: %v", got)
	}
	if got := form["parse_mode"]; len(got) != 1 || got[0] != "Markdown" {
		t.Fatalf("unexpected parse_mode: %v", got)
	}
	text := strings.Join(form["text"], "")
	for _, line := range []string{
		"Обработано: 10",
		"Прошло отбор по названию: 3",
		"Принято после анализа: 1",
		"Загружено в СЭД: 1",
		"Ошибок: 2",
		"Время: 1m30s",
	} {
		if !strings.Contains(text, line) {
			t.Fatalf("report text missing %q:\n%s", line, text)
		}
	}
}

func TestPublishReportRejectsMisconfiguration(t *testing.T) {
	t.Parallel()

	notifier := NewNotifier("", "")
	if err := notifier.PublishReport(context.Background(), domain.RunReport{}); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestPublishReportSurfacesAPIFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	notifier := NewNotifier("token-123", "chat-42")
	notifier.apiBase = srv.URL
	if err := notifier.PublishReport(context.Background(), domain.RunReport{}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
