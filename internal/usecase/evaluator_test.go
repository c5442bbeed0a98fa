package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/d1freeez14/neuro-tender/internal/domain"
	"github.com/d1freeez14/neuro-tender/internal/retry"
)

type modelStub struct {
	titleDecision   string
	titleErr        error
	summary         string
	summarizeErr    error
	contentDecision string
	contentErr      error
	translated      string
	translateErr    error

	titleCalls     int
	summarizeCalls int
	contentCalls   int
	contentInput   string
	translateCalls int
}

func (m *modelStub) ClassifyTitle(context.Context, string) (string, error) {
	m.titleCalls++
	return m.titleDecision, m.titleErr
}

func (m *modelStub) Summarize(context.Context, string) (string, error) {
	m.summarizeCalls++
	return m.summary, m.summarizeErr
}

func (m *modelStub) ClassifyContent(_ context.Context, text string) (string, error) {
	m.contentCalls++
	m.contentInput = text
	return m.contentDecision, m.contentErr
}

func (m *modelStub) Translate(_ context.Context, text string) (string, error) {
	m.translateCalls++
	if m.translated == "" && m.translateErr == nil {
		return text, nil
	}
	return m.translated, m.translateErr
}

func fastPolicy() retry.Policy {
	return retry.Policy{Attempts: 2}
}

func sedText(filler int) string {
	var b strings.Builder
	b.WriteString("Закупается система электронного документооборота с поддержкой ЭЦП. ")
	for b.Len() < filler {
		b.WriteString("Дополнительные требования к функциональности и интеграции. ")
	}
	return b.String()
}

func TestKeywordHits(t *testing.T) {
	t.Parallel()

	// Substring matching is literal, so the fixture uses nominative forms.
	text := "Внедрение СЭД: электронная цифровая подпись, регистрация документов, электронный документооборот"
	if hits := KeywordHits(text, DefaultKeywords); hits < 3 {
		t.Fatalf("expected at least 3 hits, got %d", hits)
	}
	if hits := KeywordHits("Поставка канцелярских товаров", DefaultKeywords); hits != 0 {
		t.Fatalf("expected 0 hits, got %d", hits)
	}
}

func TestSplitChunks(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("аб", 5000) // 10000 runes
	chunks := SplitChunks(text, 3000, 5)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	if len([]rune(chunks[0])) != 3000 {
		t.Fatalf("unexpected first chunk length: %d", len([]rune(chunks[0])))
	}
	if len([]rune(chunks[3])) != 1000 {
		t.Fatalf("unexpected last chunk length: %d", len([]rune(chunks[3])))
	}

	capped := SplitChunks(strings.Repeat("в", 100_000), 3000, 5)
	if len(capped) != 5 {
		t.Fatalf("expected chunk cap of 5, got %d", len(capped))
	}
}

func TestEvaluateKeywordGateSkipsModel(t *testing.T) {
	t.Parallel()

	model := &modelStub{}
	evaluator := NewEvaluator(model, EvaluatorConfig{Policy: fastPolicy()}, nil)

	eval, err := evaluator.Evaluate(context.Background(), "100-1", "Поставка канцелярских товаров для офиса")
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if eval.Decision != domain.DecisionNo {
		t.Fatalf("expected rejection, got %q", eval.Decision)
	}
	if model.summarizeCalls != 0 || model.contentCalls != 0 {
		t.Fatal("keyword gate must not reach the model")
	}
}

func TestEvaluateAcceptsMatchingSpecification(t *testing.T) {
	t.Parallel()

	model := &modelStub{
		summary:         "Резюме спецификации",
		contentDecision: domain.DecisionYes,
	}
	evaluator := NewEvaluator(model, EvaluatorConfig{Policy: fastPolicy()}, nil)

	text := sedText(500)
	eval, err := evaluator.Evaluate(context.Background(), "100-1", text)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if eval.Decision != domain.DecisionYes {
		t.Fatalf("expected acceptance, got %q", eval.Decision)
	}
	if eval.Summary != "Резюме спецификации" {
		t.Fatalf("unexpected summary: %q", eval.Summary)
	}
	// A single-chunk specification is judged verbatim and summarized only
	// after the verdict comes back positive.
	if model.contentInput != text {
		t.Fatalf("verdict must see the raw text, got %q", model.contentInput)
	}
	if model.summarizeCalls != 1 {
		t.Fatalf("short text must be summarized once, got %d calls", model.summarizeCalls)
	}
}

func TestEvaluateChunksLongText(t *testing.T) {
	t.Parallel()

	model := &modelStub{
		summary:         "Частичное резюме",
		contentDecision: domain.DecisionYes,
	}
	evaluator := NewEvaluator(model, EvaluatorConfig{ChunkSize: 1000, MaxChunks: 3, Policy: fastPolicy()}, nil)

	eval, err := evaluator.Evaluate(context.Background(), "100-1", sedText(10_000))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	// Three chunk summaries plus one combining pass over their concatenation.
	if model.summarizeCalls != 4 {
		t.Fatalf("expected 4 summarize calls, got %d", model.summarizeCalls)
	}
	if model.contentInput != "Частичное резюме" {
		t.Fatalf("verdict must see the combined summary, got %q", model.contentInput)
	}
	if eval.Summary != "Частичное резюме" {
		t.Fatalf("unexpected combined summary: %q", eval.Summary)
	}
}

func TestEvaluateRejectionSkipsSummaryAndTranslation(t *testing.T) {
	t.Parallel()

	model := &modelStub{contentDecision: domain.DecisionNo}
	evaluator := NewEvaluator(model, EvaluatorConfig{Policy: fastPolicy()}, nil)

	eval, err := evaluator.Evaluate(context.Background(), "100-1", sedText(500))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if eval.Decision != domain.DecisionNo || eval.Summary != "" {
		t.Fatalf("unexpected evaluation: %+v", eval)
	}
	if model.summarizeCalls != 0 {
		t.Fatalf("rejected short text must not be summarized, got %d calls", model.summarizeCalls)
	}
	if model.translateCalls != 0 {
		t.Fatalf("rejected text must not be translated, got %d calls", model.translateCalls)
	}
}

func TestEvaluateTranslationFailureKeepsSummary(t *testing.T) {
	t.Parallel()

	model := &modelStub{
		summary:         "Оригинальное резюме",
		contentDecision: domain.DecisionYes,
		translateErr:    errors.New("model offline"),
	}
	evaluator := NewEvaluator(model, EvaluatorConfig{Policy: fastPolicy()}, nil)

	eval, err := evaluator.Evaluate(context.Background(), "100-1", sedText(500))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if eval.Summary != "Оригинальное резюме" {
		t.Fatalf("expected untranslated summary, got %q", eval.Summary)
	}
	if model.translateCalls != 2 {
		t.Fatalf("expected translation retries, got %d calls", model.translateCalls)
	}
}

func TestEvaluateVerdictFailureRejects(t *testing.T) {
	t.Parallel()

	model := &modelStub{
		summary:    "Резюме",
		contentErr: errors.New("model offline"),
	}
	evaluator := NewEvaluator(model, EvaluatorConfig{Policy: fastPolicy()}, nil)

	eval, err := evaluator.Evaluate(context.Background(), "100-1", sedText(500))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if eval.Decision != domain.DecisionNo {
		t.Fatalf("expected safe rejection, got %q", eval.Decision)
	}
	if model.summarizeCalls != 0 || model.translateCalls != 0 {
		t.Fatalf("failed verdict must not spend further model calls: %+v", model)
	}
}

func TestTriageTitleDegradesToUnknown(t *testing.T) {
	t.Parallel()

	model := &modelStub{titleErr: errors.New("model offline")}
	evaluator := NewEvaluator(model, EvaluatorConfig{Policy: fastPolicy()}, nil)

	if got := evaluator.TriageTitle(context.Background(), "Тендер"); got != domain.DecisionUnknown {
		t.Fatalf("expected unknown, got %q", got)
	}
	if model.titleCalls != 2 {
		t.Fatalf("expected retries before degrading, got %d calls", model.titleCalls)
	}
}
