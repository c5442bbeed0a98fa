package domain

import "time"

// Announcement is the core entity describing a tender notice on a source portal.
// Discovery fills ID and Name only; document acquisition enriches the rest.
// The ID keeps the portal's discriminator suffix (e.g. "12345678-1").
type Announcement struct {
	ID           string `json:"announcement_id"`
	Name         string `json:"name"`
	Amount       string `json:"amount,omitempty"`
	Type         string `json:"type,omitempty"`
	Status       string `json:"status,omitempty"`
	Organizer    string `json:"correspondent,omitempty"`
	OrganizerBIN string `json:"correspondent_id,omitempty"`
	StartedAt    string `json:"started_at,omitempty"`
	FinishedAt   string `json:"finished_at,omitempty"`
	Summary      string `json:"summary,omitempty"`
	Link         string `json:"link,omitempty"`
}

// Decision tokens produced by the classification model.
const (
	DecisionPossible = "возможно"
	DecisionNo       = "нет"
	DecisionUnknown  = "неизвестно"
	DecisionYes      = "да"
)

// ProcessingStatus enumerates pipeline milestones for a single announcement.
type ProcessingStatus string

const (
	StatusDiscovered        ProcessingStatus = "discovered"
	StatusStage1Evaluated   ProcessingStatus = "stage1_evaluated"
	StatusDocumentsAcquired ProcessingStatus = "documents_acquired"
	StatusStage2Evaluated   ProcessingStatus = "stage2_evaluated"
	StatusRejected          ProcessingStatus = "rejected"
	StatusAccepted          ProcessingStatus = "accepted"
	StatusUploaded          ProcessingStatus = "uploaded"
	StatusFailed            ProcessingStatus = "failed"
)

// Evaluation is the outcome of the deep (stage 2) analysis.
type Evaluation struct {
	Decision string
	Summary  string
}

// ParsingResult is the per-site outcome of announcement discovery.
type ParsingResult struct {
	Announcements  map[string]Announcement
	TotalPages     int
	ProcessedPages int
	Errors         int
}

// ProcessingStats aggregates counters for one pipeline run.
type ProcessingStats struct {
	TotalProcessed    int
	Stage1Success     int
	Stage2Success     int
	UploadsSuccessful int
	Errors            int
}

// RunReport captures one finished pipeline pass for the notification channel.
type RunReport struct {
	Stats   ProcessingStats
	Elapsed time.Duration
}

// DownloadStats aggregates counters for document acquisition.
type DownloadStats struct {
	TotalFiles      int
	DownloadedFiles int
	SkippedFiles    int
	Errors          int
}

// RemovalStats aggregates counters for the retention sweep.
type RemovalStats struct {
	RemovedFiles int
	RemovedDirs  int
	Errors       int
}
