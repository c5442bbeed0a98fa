package docs

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/d1freeez14/neuro-tender/internal/domain"
)

var (
	discriminatorRe = regexp.MustCompile(`-(\d+)$`)
	binRe           = regexp.MustCompile(`\b\d{12}\b`)
	modalFilesRe    = regexp.MustCompile(`actionModalShowFiles\(\d+,\s*(\d+)\)`)
)

// SplitDiscriminator separates the portal identifier from the lot
// discriminator the search listing appends ("12345678-1" -> "12345678", "1").
// An identifier without a suffix comes back unchanged.
func SplitDiscriminator(id string) (portalID, discriminator string) {
	m := discriminatorRe.FindStringSubmatchIndex(id)
	if m == nil {
		return id, ""
	}
	return id[:m[0]], id[m[2]:m[3]]
}

// ExtractOrganizerID pulls the 12-digit business identification number out of
// the organizer cell and returns the remaining organizer name.
func ExtractOrganizerID(text string) (bin, residual string) {
	bin = binRe.FindString(text)
	if bin == "" {
		return "", strings.TrimSpace(text)
	}
	return bin, strings.TrimSpace(strings.Replace(text, bin, "", 1))
}

// Labels and headers on the announcement card. The portal renders key fields
// as label/input pairs and the rest as table rows.
const (
	labelNumber     = "Номер объявления"
	labelName       = "Наименование объявления"
	labelStatus     = "Статус объявления"
	labelStartedAt  = "Срок начала приема заявок"
	labelFinishedAt = "Срок окончания приема заявок"

	headerMethod    = "Способ проведения закупки"
	headerOrganizer = "Организатор"
	headerAmount    = "Сумма закупки"
)

// Technical specification rows are recognized by category title.
var specCategoryTitles = []string{"Техническая спецификация", "Техническое задание"}

// parseAnnouncement reads the announcement card into the domain entity.
// Fields absent from the page stay empty.
func parseAnnouncement(doc *goquery.Document, id, link string) domain.Announcement {
	fields := map[string]string{}
	doc.Find("label").Each(func(_ int, s *goquery.Selection) {
		label := strings.TrimSpace(s.Text())
		if label == "" {
			return
		}
		value, ok := s.Parent().Find("input").First().Attr("value")
		if !ok {
			return
		}
		fields[label] = strings.TrimSpace(value)
	})

	rows := map[string]string{}
	doc.Find("tr").Each(func(_ int, s *goquery.Selection) {
		header := strings.TrimSpace(s.Find("th").First().Text())
		if header == "" {
			return
		}
		rows[header] = strings.TrimSpace(s.Find("td").First().Text())
	})

	bin, organizer := ExtractOrganizerID(rows[headerOrganizer])

	// The ID stays the listing identifier even when the card shows its own
	// number, because the download folder is keyed by it.
	return domain.Announcement{
		ID:           id,
		Name:         fields[labelName],
		Amount:       rows[headerAmount],
		Type:         rows[headerMethod],
		Status:       fields[labelStatus],
		Organizer:    organizer,
		OrganizerBIN: bin,
		StartedAt:    fields[labelStartedAt],
		FinishedAt:   fields[labelFinishedAt],
		Link:         link,
	}
}

// specCategoryIDs finds the modal identifiers of document categories holding
// the technical specification.
func specCategoryIDs(doc *goquery.Document) []string {
	var ids []string
	seen := map[string]bool{}
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		title := strings.TrimSpace(row.Find("td").First().Text())
		if !isSpecCategory(title) {
			return
		}
		row.Find("button").Each(func(_ int, btn *goquery.Selection) {
			onclick, ok := btn.Attr("onclick")
			if !ok {
				return
			}
			m := modalFilesRe.FindStringSubmatch(onclick)
			if m == nil || seen[m[1]] {
				return
			}
			seen[m[1]] = true
			ids = append(ids, m[1])
		})
	})
	return ids
}

func isSpecCategory(title string) bool {
	for _, want := range specCategoryTitles {
		if strings.Contains(title, want) {
			return true
		}
	}
	return false
}
