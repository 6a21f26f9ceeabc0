package answer

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/answerdex/internal/domain"
	"github.com/kailas-cloud/answerdex/internal/metrics"
	"github.com/kailas-cloud/answerdex/internal/usecase/retrieval"
)

// User-facing warnings for no_answer results.
const (
	warnQueryTooShort   = "Query is too short."
	warnUnavailable     = "The assistant is currently unavailable."
	warnNoData          = "No relevant data found."
	warnUpstreamFailed  = "The assistant could not produce an answer. Please try again later."
	warnRejectedUncited = "Answer rejected because it did not cite retrieved objects."
	warnLowConfidence   = "Low confidence answer; verify against the cited records."
)

// Service turns a free-text query into a citation-backed answer or a
// structured refusal. Every evaluation resolves to a well-formed result;
// only persistence failures propagate as errors.
type Service struct {
	cfg       Config
	guard     Guard
	retriever Retriever
	model     domain.AnswerModel
	logger    *zap.Logger
}

// New creates an answer service.
func New(cfg Config, guard Guard, retriever Retriever, model domain.AnswerModel, logger *zap.Logger) *Service {
	return &Service{cfg: cfg, guard: guard, retriever: retriever, model: model, logger: logger}
}

// Answer evaluates one query for one tenant. Usage is recorded here, and
// only when the evaluation produced an accepted answer.
func (s *Service) Answer(ctx context.Context, tenantID, query string) (domain.AnswerResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < retrieval.MinQueryLen {
		return noAnswer(warnQueryTooShort, nil), nil
	}

	if !s.cfg.Enabled {
		return noAnswer(warnUnavailable, nil), nil
	}

	if _, err := s.guard.CheckAndPrepare(ctx, tenantID); err != nil {
		if domain.IsGuardError(err) {
			return noAnswer(domain.GuardWarning(err), nil), nil
		}
		return domain.AnswerResult{}, err
	}

	retrieved, err := s.retriever.Retrieve(ctx, tenantID, query)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	meta := &domain.AnswerMeta{
		CandidateCount: len(retrieved.Candidates),
		LexicalCount:   retrieved.LexicalCount,
	}

	if len(retrieved.Candidates) == 0 {
		return noAnswer(warnNoData, meta), nil
	}

	raw, err := s.model.GenerateAnswer(ctx, buildPayload(query, retrieved.Candidates))
	if err != nil {
		s.logUpstreamFailure(tenantID, err)
		return noAnswer(warnUpstreamFailed, meta), nil
	}

	resp, ok := parseModelResponse(raw)
	if !ok {
		resp = modelResponse{NoAnswer: true, Notes: malformedNotes}
	}

	citations, hadInvalid := validateCitations(resp.Citations, retrieved.Candidates)

	// No citations means no answer, regardless of what the model claimed.
	if !resp.NoAnswer && len(citations) == 0 {
		resp.NoAnswer = true
		if resp.Notes == "" || hadInvalid {
			resp.Notes = warnRejectedUncited
		}
	}

	confidence := s.dampConfidence(resp.Confidence, len(citations), meta)

	if resp.NoAnswer {
		warning := resp.Notes
		if warning == "" {
			warning = warnNoData
		}
		return noAnswer(warning, meta), nil
	}

	metrics.AnswerResultsTotal.WithLabelValues("answered").Inc()

	// Usage counts only accepted answers. An accounting failure is logged,
	// not surfaced; the tenant already has the answer.
	if err := s.guard.RecordSuccess(ctx, tenantID, s.cfg.CostPerAnswerCents); err != nil {
		s.logger.Error("Failed to record assistant usage",
			zap.String("tenant_id", tenantID), zap.Error(err))
	}

	result := domain.AnswerResult{
		OK:         true,
		Answer:     resp.Answer,
		Citations:  citations,
		Confidence: confidence,
		Meta:       meta,
	}

	if confidence < s.cfg.LowConfidenceThreshold {
		if resp.Notes != "" {
			result.Warning = resp.Notes
		} else {
			result.Warning = warnLowConfidence
		}
	}

	return result, nil
}

// validateCitations keeps only citations whose normalized (type, id) pair
// exists in the candidate set, enriching survivors with display fields.
// The second return value reports whether any citation was dropped.
func validateCitations(
	raw []modelCitation, candidates []domain.Candidate,
) ([]domain.Citation, bool) {
	byKey := make(map[string]*domain.Candidate, len(candidates))
	for i := range candidates {
		byKey[candidates[i].Key()] = &candidates[i]
	}

	valid := make([]domain.Citation, 0, len(raw))
	hadInvalid := false
	seen := make(map[string]struct{}, len(raw))

	for _, c := range raw {
		cat, ok := domain.ParseCategory(strings.ToLower(strings.TrimSpace(c.Type)))
		if !ok {
			hadInvalid = true
			continue
		}
		key := cat.Singular() + ":" + string(c.ID)
		cand, ok := byKey[key]
		if !ok {
			hadInvalid = true
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		valid = append(valid, domain.Citation{
			Type:    cand.Type,
			ID:      cand.ID,
			Label:   cand.Label,
			URL:     cand.URL,
			Snippet: cand.Snippet,
		})
	}

	return valid, hadInvalid
}

// dampConfidence applies the evidence-quality dampers and clamps to [0,1].
// An empty citation set always forces confidence to zero.
func (s *Service) dampConfidence(confidence float64, citationCount int, meta *domain.AnswerMeta) float64 {
	if citationCount == 0 {
		return 0
	}
	if meta.CandidateCount <= s.cfg.ThinEvidenceMax {
		confidence *= s.cfg.ThinEvidenceFactor
	}
	if meta.LexicalCount == 0 {
		confidence *= s.cfg.SemanticOnlyFactor
	}
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

func (s *Service) logUpstreamFailure(tenantID string, err error) {
	switch {
	case errors.Is(err, domain.ErrUpstreamTimeout):
		s.logger.Error("Generative call timed out", zap.String("tenant_id", tenantID), zap.Error(err))
	case errors.Is(err, domain.ErrUpstreamTransport):
		s.logger.Error("Generative call failed", zap.String("tenant_id", tenantID), zap.Error(err))
	default:
		s.logger.Error("Generative call returned an unexpected error",
			zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func noAnswer(warning string, meta *domain.AnswerMeta) domain.AnswerResult {
	metrics.AnswerResultsTotal.WithLabelValues("no_answer").Inc()
	return domain.AnswerResult{
		NoAnswer:   true,
		Citations:  []domain.Citation{},
		Confidence: 0,
		Warning:    warning,
		Meta:       meta,
	}
}
