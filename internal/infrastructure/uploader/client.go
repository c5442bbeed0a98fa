// Package uploader submits accepted tenders to the Documentolog intake
// webservice as JSON requests with the first specification file attached.
package uploader

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/d1freeez14/neuro-tender/internal/config"
	"github.com/d1freeez14/neuro-tender/internal/domain"
	"github.com/d1freeez14/neuro-tender/internal/infrastructure/docs"
	"github.com/d1freeez14/neuro-tender/internal/ports"
	"github.com/d1freeez14/neuro-tender/internal/retry"
)

var binDigitsRe = regexp.MustCompile(`^\d{12}$`)

// Dictionary bindings of the intake system.
const (
	requestTypeKey   = "12"
	requestTypeValue = "Тендер"
	sourceKey        = "21"
	sourceValue      = "goszakup.gov.kz"
)

// attachment describes one uploaded file.
type attachment struct {
	Base64   string `json:"base64"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
	MD5Sum   string `json:"md5sum"`
}

type createRequest struct {
	BIN         string            `json:"bin"`
	CompanyName string            `json:"nazvanie_kompanii"`
	Message     string            `json:"tekst_soobsheniya"`
	RequestType map[string]string `json:"tip_zayavki"`
	Source      map[string]string `json:"istochnik"`
	Analysis    string            `json:"kratkij_ii_analiz_ts"`
	Attachments []attachment      `json:"teh_spetsifikatsiya"`
}

// Client implements ports.Submitter against the intake webservice.
type Client struct {
	url      string
	username string
	password string
	dataDir  string
	policy   retry.Policy
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.Submitter = (*Client)(nil)

// NewClient builds the submitter from configuration; dataDir is where the
// downloaded specification files live.
func NewClient(cfg config.UploadConfig, dataDir string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 3
	}
	return &Client{
		url:      cfg.URL,
		username: cfg.Username,
		password: cfg.Password,
		dataDir:  dataDir,
		policy:   retry.Policy{Attempts: attempts, Delay: 5 * time.Second},
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Upload validates, packages and posts the tender; it returns the document
// identifier assigned by the intake system.
func (c *Client) Upload(ctx context.Context, a domain.Announcement) (string, error) {
	name, content, err := docs.FirstDocument(c.dataDir, a.ID)
	if err != nil {
		return "", fmt.Errorf("attachment for %s: %w", a.ID, err)
	}

	req := createRequest{
		BIN:         a.OrganizerBIN,
		CompanyName: a.Organizer,
		Message:     buildMessage(a),
		RequestType: map[string]string{requestTypeKey: requestTypeValue},
		Source:      map[string]string{sourceKey: sourceValue},
		Analysis:    a.Summary,
		Attachments: []attachment{newAttachment(name, content)},
	}
	if err := validate(req); err != nil {
		return "", fmt.Errorf("validate %s: %w", a.ID, err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	documentID, err := retry.Do(ctx, c.policy, func() (string, error) {
		return c.post(ctx, body)
	}, func(_ string, err error) bool {
		return err != nil
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", a.ID, err)
	}

	c.logger.Info("tender uploaded", "id", a.ID, "document_id", documentID)
	return documentID, nil
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("intake error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var out struct {
		Data struct {
			DocumentID []string `json:"document_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Data.DocumentID) == 0 {
		return "", fmt.Errorf("intake response has no document id")
	}
	return out.Data.DocumentID[0], nil
}

func newAttachment(name string, content []byte) attachment {
	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return attachment{
		Base64:   base64.StdEncoding.EncodeToString(content),
		Name:     name,
		MimeType: mimeType,
		Size:     len(content),
		MD5Sum:   fmt.Sprintf("%x", md5.Sum(content)),
	}
}

// validate rejects a package the intake system would bounce anyway.
func validate(req createRequest) error {
	if !binDigitsRe.MatchString(req.BIN) {
		return fmt.Errorf("organizer BIN must be 12 digits, got %q", req.BIN)
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		return fmt.Errorf("organizer name is empty")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("message text is empty")
	}
	if strings.TrimSpace(req.Analysis) == "" {
		return fmt.Errorf("analysis summary is empty")
	}
	if len(req.Attachments) == 0 {
		return fmt.Errorf("no attachments")
	}
	for _, att := range req.Attachments {
		if att.Name == "" || att.Base64 == "" {
			return fmt.Errorf("incomplete attachment %q", att.Name)
		}
		if len(att.MD5Sum) != 32 {
			return fmt.Errorf("bad md5 for attachment %q", att.Name)
		}
	}
	return nil
}

// buildMessage renders the intake card text from announcement fields.
func buildMessage(a domain.Announcement) string {
	lines := []string{
		"Название: " + orPlaceholder(a.Name),
		"Сумма закупки: " + orPlaceholder(a.Amount),
		"Тип закупки: " + orPlaceholder(a.Type),
		"Статус объявления: " + orPlaceholder(a.Status),
		"Срок начала приема заявок: " + formatDate(a.StartedAt),
		"Срок окончания приема заявок: " + formatDate(a.FinishedAt),
		"Номер объявления: " + orPlaceholder(a.ID),
		"Ссылка: " + orPlaceholder(a.Link),
	}
	return strings.Join(lines, "\n")
}

const placeholder = "Не указано"

func orPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return placeholder
	}
	return v
}

// formatDate renders portal timestamps as dd.mm.yyyy hh:mm; anything
// unparseable passes through as-is.
func formatDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return placeholder
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("02.01.2006 15:04")
		}
	}
	return v
}
