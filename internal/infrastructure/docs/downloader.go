// Package docs acquires tender documents from the portal: it reads the
// announcement card, locates the technical specification categories and
// downloads their files into a per-announcement folder.
package docs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/d1freeez14/neuro-tender/internal/domain"
	"github.com/d1freeez14/neuro-tender/internal/httpx"
	"github.com/d1freeez14/neuro-tender/internal/ports"
	"github.com/d1freeez14/neuro-tender/internal/retry"
)

// Downloader implements document acquisition for a single portal.
type Downloader struct {
	client  *httpx.Client
	baseURL string
	dataDir string
	pause   time.Duration
	logger  *slog.Logger

	stats domain.DownloadStats
}

var _ ports.DocumentAcquirer = (*Downloader)(nil)

// NewDownloader wires the shared HTTP client with the portal base URL and
// the folder files land in.
func NewDownloader(client *httpx.Client, baseURL, dataDir string, pause time.Duration, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		dataDir: dataDir,
		pause:   pause,
		logger:  logger,
	}
}

// Stats reports accumulated download counters.
func (d *Downloader) Stats() domain.DownloadStats {
	return d.stats
}

// Acquire reads the announcement card, enriches the entity and downloads the
// technical specification files into dataDir/<rawID>. An announcement without
// specification documents is returned with an empty folder left uncreated.
func (d *Downloader) Acquire(ctx context.Context, rawID string) (*domain.Announcement, error) {
	portalID, _ := SplitDiscriminator(rawID)
	link := fmt.Sprintf("%s/ru/announce/index/%s", d.baseURL, portalID)

	resp, err := d.client.Get(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("fetch announcement %s: %w", rawID, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse announcement %s: %w", rawID, err)
	}
	announcement := parseAnnouncement(doc, rawID, link)

	docsResp, err := d.client.Get(ctx, link+"?tab=documents")
	if err != nil {
		return nil, fmt.Errorf("fetch documents tab %s: %w", rawID, err)
	}
	docsDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(docsResp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse documents tab %s: %w", rawID, err)
	}

	categories := specCategoryIDs(docsDoc)
	if len(categories) == 0 {
		d.logger.Warn("no technical specification categories", "id", rawID)
		return &announcement, nil
	}

	var files []categoryFile
	for _, category := range categories {
		urls, err := d.categoryFiles(ctx, portalID, category)
		if err != nil {
			d.logger.Error("list category files failed", "id", rawID, "category", category, "error", err)
			d.stats.Errors++
			continue
		}
		for _, fileURL := range urls {
			files = append(files, categoryFile{url: fileURL, category: category})
		}
	}
	if len(files) == 0 {
		d.logger.Warn("no downloadable specification files", "id", rawID)
		return &announcement, nil
	}

	folder := filepath.Join(d.dataDir, rawID)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("create folder %s: %w", folder, err)
	}

	created := map[string]bool{}
	for _, file := range files {
		d.stats.TotalFiles++
		if err := d.downloadFile(ctx, folder, file, created); err != nil {
			d.logger.Error("download failed", "id", rawID, "url", file.url, "error", err)
			d.stats.Errors++
		}
	}

	d.logger.Info("documents acquired",
		"id", rawID,
		"files", d.stats.TotalFiles,
		"downloaded", d.stats.DownloadedFiles,
		"skipped", d.stats.SkippedFiles)
	return &announcement, nil
}

// categoryFiles lists file links of one modal category, skipping digital
// signature attachments.
func (d *Downloader) categoryFiles(ctx context.Context, portalID, categoryID string) ([]string, error) {
	listURL := fmt.Sprintf("%s/ru/announce/actionAjaxModalShowFiles/%s/%s", d.baseURL, portalID, categoryID)
	resp, err := d.client.Get(ctx, listURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse file list: %w", err)
	}

	var urls []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || strings.Contains(href, "signature") {
			return
		}
		urls = append(urls, d.absolute(href))
	})
	return urls, nil
}

// categoryFile is one downloadable link with the category it came from.
type categoryFile struct {
	url      string
	category string
}

// downloadFile probes the served filename, skips files already on disk from a
// previous run and resolves in-run name collisions with a numeric suffix.
func (d *Downloader) downloadFile(ctx context.Context, folder string, file categoryFile, created map[string]bool) error {
	if err := retry.Sleep(ctx, d.pause); err != nil {
		return err
	}

	name := uniqueName(d.probeName(ctx, file), created)
	created[name] = true
	if _, err := os.Stat(filepath.Join(folder, name)); err == nil {
		d.logger.Debug("file already downloaded", "file", name)
		d.stats.SkippedFiles++
		return nil
	}

	dst, err := os.Create(filepath.Join(folder, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	written, err := d.client.Download(ctx, file.url, dst)
	if closeErr := dst.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(folder, name))
		return err
	}

	d.stats.DownloadedFiles++
	d.logger.Info("file downloaded", "file", name, "bytes", written)
	return nil
}

// probeName asks the server for the filename via a metadata request; without
// a declared filename the file is named after its category, keeping the
// extension from the URL when it has one.
func (d *Downloader) probeName(ctx context.Context, file categoryFile) string {
	if header, err := d.client.Head(ctx, file.url); err == nil {
		if name := dispositionFilename(header.Get("Content-Disposition")); name != "" {
			return sanitizeName(name)
		}
	}

	ext := ""
	if u, err := url.Parse(file.url); err == nil {
		ext = path.Ext(u.Path)
	}
	if ext == "" {
		ext = ".pdf"
	}
	return sanitizeName(file.category + ext)
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	if name == "" || name == "." || string(os.PathSeparator) == name {
		name = "document"
	}
	if filepath.Ext(name) == "" {
		name += ".pdf"
	}
	return name
}

// dispositionFilename prefers the RFC 5987 encoded parameter over the plain
// quoted one.
func dispositionFilename(disposition string) string {
	if disposition == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}
	if idx := strings.Index(disposition, "filename*=UTF-8''"); idx >= 0 {
		encoded := disposition[idx+len("filename*=UTF-8''"):]
		if end := strings.IndexByte(encoded, ';'); end >= 0 {
			encoded = encoded[:end]
		}
		if name, err := url.QueryUnescape(strings.TrimSpace(encoded)); err == nil {
			return name
		}
	}
	return ""
}

// uniqueName appends _N before the extension until the name is unused in
// this run.
func uniqueName(name string, created map[string]bool) string {
	if !created[name] {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if !created[candidate] {
			return candidate
		}
	}
}

func (d *Downloader) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return d.baseURL + href
	}
	return d.baseURL + "/" + href
}
