package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/d1freeez14/neuro-tender/internal/domain"
	"github.com/d1freeez14/neuro-tender/internal/ports"
	"github.com/d1freeez14/neuro-tender/internal/retry"
)

// DefaultKeywords gate the deep analysis: a specification mentioning fewer of
// them than the threshold is rejected without spending model calls.
var DefaultKeywords = []string{
	"электронный документооборот",
	"система электронного документооборота",
	"электронная цифровая подпись",
	"целостность документа",
	"подлинность документа",
	"удостоверяющий центр",
	"регистрационно-контрольная карточка",
	"согласование документа",
	"регистрация документов",
	"внутренние документы",
	"эцп",
	"сэд",
}

// EvaluatorConfig tunes the two-stage evaluation.
type EvaluatorConfig struct {
	Keywords         []string
	ChunkSize        int
	MaxChunks        int
	KeywordThreshold int
	Policy           retry.Policy
}

// Evaluator runs the cheap title triage and the deep content analysis
// against the model.
type Evaluator struct {
	model  ports.ModelClient
	cfg    EvaluatorConfig
	logger *slog.Logger
}

// NewEvaluator fills config gaps with the portal defaults.
func NewEvaluator(model ports.ModelClient, cfg EvaluatorConfig, logger *slog.Logger) *Evaluator {
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = DefaultKeywords
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 3000
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = 5
	}
	if cfg.KeywordThreshold <= 0 {
		cfg.KeywordThreshold = 2
	}
	if cfg.Policy.Attempts < 1 {
		cfg.Policy = retry.Policy{Attempts: 3, Delay: 5 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{model: model, cfg: cfg, logger: logger}
}

// KeywordHits counts how many distinct keywords occur in the text,
// case-insensitively.
func KeywordHits(text string, keywords []string) int {
	lowered := strings.ToLower(text)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			hits++
		}
	}
	return hits
}

// SplitChunks cuts the text into rune-aligned chunks of chunkSize, keeping at
// most maxChunks of them.
func SplitChunks(text string, chunkSize, maxChunks int) []string {
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes) && len(chunks) < maxChunks; start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// TriageTitle classifies the announcement title. Exhausted retries degrade to
// the unknown decision so the announcement is looked at again next run.
func (e *Evaluator) TriageTitle(ctx context.Context, title string) string {
	decision, err := retry.Do(ctx, e.cfg.Policy, func() (string, error) {
		return e.model.ClassifyTitle(ctx, title)
	}, nil)
	if err != nil {
		e.logger.Error("title triage failed", "title", title, "error", err)
		return domain.DecisionUnknown
	}
	return decision
}

// Evaluate runs the keyword gate, chunked summarization and the final
// verdict over the extracted specification text.
func (e *Evaluator) Evaluate(ctx context.Context, id, text string) (domain.Evaluation, error) {
	rejected := domain.Evaluation{Decision: domain.DecisionNo}

	if strings.TrimSpace(text) == "" {
		e.logger.Info("no specification text", "id", id)
		return rejected, nil
	}

	hits := KeywordHits(text, e.cfg.Keywords)
	if hits < e.cfg.KeywordThreshold {
		e.logger.Info("keyword gate rejected", "id", id, "hits", hits, "threshold", e.cfg.KeywordThreshold)
		return rejected, nil
	}
	e.logger.Info("keyword gate passed", "id", id, "hits", hits)

	// Short text is judged as-is; a long one is condensed first and the
	// verdict runs on the combined summary.
	chunks := SplitChunks(text, e.cfg.ChunkSize, e.cfg.MaxChunks)
	var summary string
	verdictInput := text
	if len(chunks) > 1 {
		combined, err := e.summarizeChunks(ctx, chunks)
		if err != nil {
			return rejected, fmt.Errorf("summarize %s: %w", id, err)
		}
		summary = combined
		verdictInput = combined
	}

	decision, err := retry.Do(ctx, e.cfg.Policy, func() (string, error) {
		return e.model.ClassifyContent(ctx, verdictInput)
	}, nil)
	if err != nil {
		e.logger.Error("verdict failed, rejecting", "id", id, "error", err)
		return rejected, nil
	}
	e.logger.Info("content evaluated", "id", id, "decision", decision)
	if decision != domain.DecisionYes {
		return domain.Evaluation{Decision: decision}, nil
	}

	// Summary and translation are only paid for on acceptance.
	if summary == "" {
		summary, err = e.summarizeOne(ctx, text)
		if err != nil {
			return rejected, fmt.Errorf("summarize %s: %w", id, err)
		}
	}
	summary = e.translate(ctx, summary)
	return domain.Evaluation{Decision: decision, Summary: summary}, nil
}

// summarizeChunks condenses each chunk and then condenses the partial
// summaries once more into a combined summary.
func (e *Evaluator) summarizeChunks(ctx context.Context, chunks []string) (string, error) {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		part, err := e.summarizeOne(ctx, chunk)
		if err != nil {
			return "", fmt.Errorf("chunk %d: %w", i+1, err)
		}
		parts = append(parts, part)
	}

	combined, err := e.summarizeOne(ctx, strings.Join(parts, "\n"))
	if err != nil {
		return "", fmt.Errorf("combine summaries: %w", err)
	}
	return combined, nil
}

func (e *Evaluator) summarizeOne(ctx context.Context, chunk string) (string, error) {
	return retry.Do(ctx, e.cfg.Policy, func() (string, error) {
		return e.model.Summarize(ctx, chunk)
	}, func(summary string, err error) bool {
		return err != nil || strings.TrimSpace(summary) == ""
	})
}

// translate renders the summary into Russian; a failed translation falls
// back to the original wording.
func (e *Evaluator) translate(ctx context.Context, summary string) string {
	translated, err := retry.Do(ctx, e.cfg.Policy, func() (string, error) {
		return e.model.Translate(ctx, summary)
	}, func(text string, err error) bool {
		return err != nil || strings.TrimSpace(text) == ""
	})
	if err != nil {
		e.logger.Warn("translation failed, keeping original summary", "error", err)
		return summary
	}
	return translated
}
