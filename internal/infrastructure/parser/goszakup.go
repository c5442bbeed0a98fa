package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/d1freeez14/neuro-tender/internal/domain"
	"github.com/d1freeez14/neuro-tender/internal/scanner"
)

var pageExpr = regexp.MustCompile(`page=(\d+)`)

// GoszakupStrategy parses search-result pages of the goszakup.gov.kz portal.
type GoszakupStrategy struct {
	logger *slog.Logger
}

var _ scanner.Strategy = (*GoszakupStrategy)(nil)

// NewGoszakupStrategy builds the goszakup.gov.kz parsing strategy.
func NewGoszakupStrategy(logger *slog.Logger) *GoszakupStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoszakupStrategy{logger: logger}
}

// Name identifies the strategy inside the registry.
func (g *GoszakupStrategy) Name() string {
	return "goszakup"
}

// LastPageNumber takes the highest page reference from the pagination control.
func (g *GoszakupStrategy) LastPageNumber(doc *goquery.Document) int {
	pagination := doc.Find("ul.pagination").First()
	if pagination.Length() == 0 {
		g.logger.Warn("pagination control not found, assuming a single page")
		return 1
	}

	last := 0
	pagination.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !strings.Contains(href, "/ru/search/announce") {
			return
		}
		match := pageExpr.FindStringSubmatch(href)
		if match == nil {
			return
		}
		if page, err := strconv.Atoi(match[1]); err == nil && page > last {
			last = page
		}
	})

	if last == 0 {
		g.logger.Warn("could not determine the last page number, assuming a single page")
		return 1
	}
	return last
}

// Announcements extracts id/name pairs from the search-result table.
func (g *GoszakupStrategy) Announcements(doc *goquery.Document, page int) map[string]domain.Announcement {
	announcements := map[string]domain.Announcement{}

	table := doc.Find("table#search-result").First()
	if table.Length() == 0 {
		g.logger.Warn("result table not found", "page", page)
		return announcements
	}

	table.Find("tbody tr").Each(func(row int, tr *goquery.Selection) {
		id := strings.TrimSpace(tr.Find("strong").First().Text())
		if id == "" {
			g.logger.Debug("row without announcement id", "page", page, "row", row+1)
			return
		}

		name := strings.TrimSpace(tr.Find("a").First().Text())
		if name == "" {
			g.logger.Debug("row without announcement name", "page", page, "row", row+1)
			return
		}

		announcements[id] = domain.Announcement{ID: id, Name: name}
	})

	return announcements
}

// PageURL appends the page selector to the search URL.
func (g *GoszakupStrategy) PageURL(searchURL string, page int) string {
	return fmt.Sprintf("%s&page=%d", searchURL, page)
}
