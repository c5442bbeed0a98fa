package ports

import (
	"context"
	"time"

	"github.com/d1freeez14/neuro-tender/internal/domain"
)

// AnnouncementSource pulls fresh announcements from the configured portals.
type AnnouncementSource interface {
	Discover(ctx context.Context) (map[string]domain.Announcement, error)
}

// CheckpointStore persists processing progress so repeated runs never
// re-process completed work.
type CheckpointStore interface {
	Seen(id string) bool
	MarkSeen(id string, a domain.Announcement) error
	Stage1Passed(id string) bool
	MarkStage1(id string) error
	Stage2Passed(id string) bool
	MarkStage2(id string, a domain.Announcement) error
}

// DocumentAcquirer downloads an announcement's technical specification files
// and returns the enriched announcement details.
type DocumentAcquirer interface {
	Acquire(ctx context.Context, rawID string) (*domain.Announcement, error)
}

// TextExtractor converts an announcement's downloaded documents to plain text.
type TextExtractor interface {
	Text(ctx context.Context, rawID string) (string, error)
}

// ModelClient talks to the inference endpoint for classification,
// summarization and translation.
type ModelClient interface {
	ClassifyTitle(ctx context.Context, title string) (string, error)
	Summarize(ctx context.Context, text string) (string, error)
	ClassifyContent(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text string) (string, error)
}

// OCRClient recognizes text in a document via the remote OCR service.
type OCRClient interface {
	Recognize(ctx context.Context, filename string, content []byte) (string, error)
}

// Submitter uploads an accepted tender package to the intake system and
// returns the assigned document identifier.
type Submitter interface {
	Upload(ctx context.Context, a domain.Announcement) (string, error)
}

// AuditRepository records uploaded tenders for history and reporting.
type AuditRepository interface {
	SaveUploaded(ctx context.Context, a domain.Announcement, documentID string) error
	AlreadyUploaded(ctx context.Context, ids []string) (map[string]bool, error)
}

// Notifier delivers run reports to an external channel.
type Notifier interface {
	PublishReport(ctx context.Context, report domain.RunReport) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
