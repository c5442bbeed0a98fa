// Package usecase orchestrates the tender pipeline: discovery, title triage,
// document acquisition, deep evaluation and intake upload, checkpointed so a
// crashed run resumes where it stopped.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/d1freeez14/neuro-tender/internal/domain"
	"github.com/d1freeez14/neuro-tender/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.AnnouncementSource
	Checkpoint ports.CheckpointStore
	Acquirer   ports.DocumentAcquirer
	Extractor  ports.TextExtractor
	Evaluator  *Evaluator
	Submitter  ports.Submitter
	Audit      ports.AuditRepository
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// Pipeline implements the tender-processing workflow.
type Pipeline struct {
	source     ports.AnnouncementSource
	checkpoint ports.CheckpointStore
	acquirer   ports.DocumentAcquirer
	extractor  ports.TextExtractor
	evaluator  *Evaluator
	submitter  ports.Submitter
	audit      ports.AuditRepository
	notifier   ports.Notifier
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:     deps.Source,
		checkpoint: deps.Checkpoint,
		acquirer:   deps.Acquirer,
		extractor:  deps.Extractor,
		evaluator:  deps.Evaluator,
		submitter:  deps.Submitter,
		audit:      deps.Audit,
		notifier:   deps.Notifier,
		logger:     logger,
	}
}

// Run executes one full pass over the portal listing.
func (p *Pipeline) Run(ctx context.Context) (domain.ProcessingStats, error) {
	start := time.Now()
	var stats domain.ProcessingStats

	announcements, err := p.source.Discover(ctx)
	if err != nil {
		return stats, fmt.Errorf("discover announcements: %w", err)
	}
	p.logger.Info("announcements discovered", "count", len(announcements))

	ids := make([]string, 0, len(announcements))
	for id := range announcements {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	uploaded := map[string]bool{}
	if p.audit != nil {
		uploaded, err = p.audit.AlreadyUploaded(ctx, ids)
		if err != nil {
			p.logger.Warn("audit lookup failed", "error", err)
			uploaded = map[string]bool{}
		}
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		p.processOne(ctx, id, announcements[id], uploaded, &stats)
	}

	elapsed := time.Since(start)
	p.logger.Info("run finished",
		"processed", stats.TotalProcessed,
		"stage1_passed", stats.Stage1Success,
		"stage2_passed", stats.Stage2Success,
		"uploaded", stats.UploadsSuccessful,
		"errors", stats.Errors,
		"elapsed", elapsed)

	if p.notifier != nil {
		report := domain.RunReport{Stats: stats, Elapsed: elapsed}
		if err := p.notifier.PublishReport(ctx, report); err != nil {
			p.logger.Warn("report delivery failed", "error", err)
		}
	}
	return stats, nil
}

// processOne advances a single announcement through the stages; a panic in
// any adapter is contained so one poisoned announcement cannot kill the run.
func (p *Pipeline) processOne(ctx context.Context, id string, a domain.Announcement, uploaded map[string]bool, stats *domain.ProcessingStats) {
	defer func() {
		if r := recover(); r != nil {
			stats.Errors++
			p.logger.Error("announcement processing panicked", "id", id, "panic", r)
		}
	}()

	stats.TotalProcessed++

	if p.checkpoint.Stage2Passed(id) {
		p.logger.Debug("already accepted", "id", id)
		return
	}

	// A seen id already had its verdict in the run that discovered it; later
	// runs must not spend acquisition or model calls on it again.
	if p.checkpoint.Seen(id) {
		p.logger.Debug("already processed", "id", id)
		return
	}

	decision := p.evaluator.TriageTitle(ctx, a.Name)
	switch decision {
	case domain.DecisionPossible:
		if err := p.checkpoint.MarkSeen(id, a); err != nil {
			stats.Errors++
			p.logger.Error("checkpoint write failed", "id", id, "error", err)
			return
		}
		if err := p.checkpoint.MarkStage1(id); err != nil {
			stats.Errors++
			p.logger.Error("checkpoint write failed", "id", id, "error", err)
			return
		}
		stats.Stage1Success++
		p.logger.Info("title triage passed", "id", id, "name", a.Name)
	case domain.DecisionNo:
		if err := p.checkpoint.MarkSeen(id, a); err != nil {
			stats.Errors++
			p.logger.Error("checkpoint write failed", "id", id, "error", err)
		}
		return
	default:
		// The model was unreachable; leave the id unmarked so the next
		// run evaluates it again.
		p.logger.Warn("title triage inconclusive", "id", id)
		return
	}

	rawID := rawAnnouncementID(id)

	enriched, err := p.acquirer.Acquire(ctx, rawID)
	if err != nil {
		stats.Errors++
		p.logger.Error("document acquisition failed", "id", id, "error", err)
		return
	}
	if enriched.Name == "" {
		enriched.Name = a.Name
	}

	text, err := p.extractor.Text(ctx, rawID)
	if err != nil {
		stats.Errors++
		p.logger.Error("text extraction failed", "id", id, "error", err)
		return
	}

	eval, err := p.evaluator.Evaluate(ctx, id, text)
	if err != nil {
		stats.Errors++
		p.logger.Error("evaluation failed", "id", id, "error", err)
		return
	}
	if eval.Decision != domain.DecisionYes {
		return
	}

	enriched.Summary = eval.Summary
	if err := p.checkpoint.MarkStage2(id, *enriched); err != nil {
		stats.Errors++
		p.logger.Error("checkpoint write failed", "id", id, "error", err)
		return
	}
	stats.Stage2Success++

	if uploaded[id] {
		p.logger.Info("already uploaded, skipping intake", "id", id)
		return
	}
	if p.submitter == nil {
		return
	}

	documentID, err := p.submitter.Upload(ctx, *enriched)
	if err != nil {
		stats.Errors++
		p.logger.Error("upload failed", "id", id, "error", err)
		return
	}
	stats.UploadsSuccessful++

	if p.audit != nil {
		// Audit rows key on the discovery id so the pre-run lookup matches
		// the prefixed keys of multi-site runs.
		record := *enriched
		record.ID = id
		if err := p.audit.SaveUploaded(ctx, record, documentID); err != nil {
			p.logger.Warn("audit write failed", "id", id, "error", err)
		}
	}
}

// rawAnnouncementID strips the site prefix added when several portals are
// scraped together; bare portal identifiers never contain an underscore.
func rawAnnouncementID(id string) string {
	if idx := strings.Index(id, "_"); idx >= 0 {
		return id[idx+1:]
	}
	return id
}
