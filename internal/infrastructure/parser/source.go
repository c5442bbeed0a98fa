package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/d1freeez14/neuro-tender/internal/config"
	"github.com/d1freeez14/neuro-tender/internal/domain"
	"github.com/d1freeez14/neuro-tender/internal/httpx"
	"github.com/d1freeez14/neuro-tender/internal/ports"
	"github.com/d1freeez14/neuro-tender/internal/scanner"
)

// StrategySource implements AnnouncementSource via registered parsing
// strategies, walking every result page of every enabled site.
type StrategySource struct {
	registry *scanner.Registry
	client   *httpx.Client
	sites    []config.SiteConfig
	logger   *slog.Logger
}

var _ ports.AnnouncementSource = (*StrategySource)(nil)

// NewStrategySource wires the strategy registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, client *httpx.Client, sites []config.SiteConfig, logger *slog.Logger) *StrategySource {
	if logger == nil {
		logger = slog.Default()
	}
	return &StrategySource{
		registry: reg,
		client:   client,
		sites:    sites,
		logger:   logger,
	}
}

// Discover walks all enabled sites and merges their announcements into one
// map. With more than one enabled site every key is prefixed with the site
// name; a single-site run keeps bare portal ids so existing checkpoints stay
// valid. A failed site or page degrades the result, never the whole run.
func (s *StrategySource) Discover(ctx context.Context) (map[string]domain.Announcement, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("parser registry is not configured")
	}

	var enabled []config.SiteConfig
	for _, site := range s.sites {
		if site.Enabled {
			enabled = append(enabled, site)
		}
	}
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no enabled sites configured")
	}

	prefixKeys := len(enabled) > 1
	merged := map[string]domain.Announcement{}

	for _, site := range enabled {
		strategy, err := s.registry.Resolve(site.Parser)
		if err != nil {
			s.logger.Error("skipping site", "site", site.Name, "error", err)
			continue
		}

		result := s.parseSite(ctx, site, strategy)
		for id, announcement := range result.Announcements {
			key := id
			if prefixKeys {
				key = site.Name + "_" + id
			}
			merged[key] = announcement
		}

		s.logger.Info("site parsed",
			"site", site.Name,
			"total_pages", result.TotalPages,
			"processed_pages", result.ProcessedPages,
			"announcements", len(result.Announcements),
			"errors", result.Errors)
	}

	s.logger.Info("discovery finished", "announcements", len(merged))
	return merged, nil
}

// parseSite fetches the first result page to size the pagination, reuses
// that document for page 1, then walks the remaining pages in order.
func (s *StrategySource) parseSite(ctx context.Context, site config.SiteConfig, strategy scanner.Strategy) domain.ParsingResult {
	result := domain.ParsingResult{Announcements: map[string]domain.Announcement{}}

	s.logger.Info("parsing site", "site", site.Name, "parser", strategy.Name())

	first, err := s.fetchDocument(ctx, site.SearchURL)
	if err != nil {
		s.logger.Error("first page unreachable, skipping site", "site", site.Name, "error", err)
		result.Errors++
		return result
	}

	lastPage := strategy.LastPageNumber(first)
	result.TotalPages = lastPage
	s.logger.Info("pages discovered", "site", site.Name, "pages", lastPage)

	for page := 1; page <= lastPage; page++ {
		doc := first
		if page > 1 {
			doc, err = s.fetchDocument(ctx, strategy.PageURL(site.SearchURL, page))
			if err != nil {
				s.logger.Error("skipping page", "site", site.Name, "page", page, "error", err)
				result.Errors++
				continue
			}
		}

		items := strategy.Announcements(doc, page)
		for id, announcement := range items {
			result.Announcements[id] = announcement
		}
		result.ProcessedPages++

		s.logger.Debug("page processed", "site", site.Name, "page", page, "announcements", len(items))
	}

	return result
}

func (s *StrategySource) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := s.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}
