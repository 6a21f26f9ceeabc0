package retrieval

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/answerdex/internal/domain"
)

// MinQueryLen is the defensive minimum query length; shorter queries return
// empty results without touching the index or the embedding provider.
const MinQueryLen = 2

// semanticOverfetch widens the KNN fetch beyond the final bucket capacity.
// The fetch is a single tenant-wide query, so a dominant category could
// otherwise crowd minority-category hits out of the window before the score
// floors and per-category buckets run.
const semanticOverfetch = 4

// Config holds retrieval policy knobs. Values mirror production behavior
// but are configuration, not derived constants.
type Config struct {
	LexicalLimits       map[domain.Category]int // per-category lexical caps
	SemanticPerType     int                     // semantic bucket cap per category
	AbsoluteFloor       float64                 // minimum cosine similarity kept
	RelativeFloorOffset float64                 // floor tightens to topScore - offset
	SnippetMaxChars     int                     // evidence snippet bound
}

// Service runs lexical and semantic retrieval and fuses the results into a
// bounded, deduplicated candidate set.
type Service struct {
	search SearchRepo
	texts  TextFetcher
	embed  domain.Embedder
	urls   URLBuilder
	cfg    Config
	logger *zap.Logger
}

// New creates a retrieval service.
func New(
	search SearchRepo, texts TextFetcher, embed domain.Embedder,
	urls URLBuilder, cfg Config, logger *zap.Logger,
) *Service {
	return &Service{search: search, texts: texts, embed: embed, urls: urls, cfg: cfg, logger: logger}
}

// Retrieve evaluates one query for one tenant. Queries shorter than
// MinQueryLen yield an empty result set.
func (s *Service) Retrieve(ctx context.Context, tenantID, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLen {
		return Result{}, nil
	}

	lexical, err := s.lexical(ctx, tenantID, query)
	if err != nil {
		return Result{}, err
	}

	semantic, err := s.semantic(ctx, tenantID, query)
	if err != nil {
		return Result{}, err
	}

	fused := fuse(lexical, semantic, s.fusionLimit())
	candidates := s.toCandidates(fused)

	if err := s.enrichSnippets(ctx, tenantID, candidates); err != nil {
		return Result{}, err
	}
	s.applyURLs(candidates)

	return Result{Candidates: candidates, LexicalCount: len(lexical)}, nil
}

// lexical runs the weighted BM25 search per category with deterministic
// ordering: score desc, then recency, then object id.
func (s *Service) lexical(ctx context.Context, tenantID, query string) ([]domain.SearchHit, error) {
	var all []domain.SearchHit
	for _, cat := range domain.Categories() {
		limit := s.cfg.LexicalLimits[cat]
		if limit <= 0 {
			continue
		}
		hits, err := s.search.Lexical(ctx, tenantID, cat, query, limit)
		if err != nil {
			return nil, fmt.Errorf("lexical %s: %w", cat, err)
		}
		all = append(all, hits...)
	}
	sortHits(all)
	return all, nil
}

// semantic embeds the query and broadens the result set by vector
// similarity. Degrades silently to empty when the embedding call fails.
func (s *Service) semantic(ctx context.Context, tenantID, query string) ([]domain.SearchHit, error) {
	embRes, err := s.embed.Embed(ctx, query)
	if err != nil || len(embRes.Embedding) == 0 {
		s.logger.Warn("Semantic broadening skipped, embedding unavailable",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return nil, nil
	}

	k := s.cfg.SemanticPerType * domain.NumCategories() * semanticOverfetch
	hits, err := s.search.Semantic(ctx, tenantID, embRes.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("semantic: %w", err)
	}

	return s.bucketByFloor(hits), nil
}

// bucketByFloor applies the absolute and relative score floors, then fills
// per-category buckets, stopping early once every bucket is full.
func (s *Service) bucketByFloor(hits []domain.SearchHit) []domain.SearchHit {
	sortHits(hits)

	var survivors []domain.SearchHit
	for _, h := range hits {
		if h.Score >= s.cfg.AbsoluteFloor {
			survivors = append(survivors, h)
		}
	}
	if len(survivors) == 0 {
		return nil
	}

	// A single dominant match tightens the floor; a flat score profile
	// keeps it at the absolute minimum.
	floor := s.cfg.AbsoluteFloor
	if rel := survivors[0].Score - s.cfg.RelativeFloorOffset; rel > floor {
		floor = rel
	}

	buckets := make(map[domain.Category]int, domain.NumCategories())
	filled := 0

	var out []domain.SearchHit
	for _, h := range survivors {
		if h.Score < floor {
			break // survivors are sorted, nothing below the floor follows
		}
		if buckets[h.Category] >= s.cfg.SemanticPerType {
			continue
		}
		buckets[h.Category]++
		if buckets[h.Category] == s.cfg.SemanticPerType {
			filled++
		}
		out = append(out, h)
		if filled == domain.NumCategories() {
			break
		}
	}
	return out
}

func (s *Service) fusionLimit() int {
	return s.cfg.SemanticPerType * domain.NumCategories()
}

// toCandidates projects fused hits into query-scoped candidates.
func (s *Service) toCandidates(hits []domain.SearchHit) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.Candidate{
			Type:      h.Category.Singular(),
			ID:        h.ObjectID,
			Label:     h.Label,
			Snippet:   domain.TruncateSnippet(h.Text, s.cfg.SnippetMaxChars),
			Score:     h.Score,
			ContactID: h.ContactID,
		})
	}
	return out
}

// enrichSnippets substitutes fresh full-text snippets for candidates whose
// category carries rich free-text fields.
func (s *Service) enrichSnippets(ctx context.Context, tenantID string, candidates []domain.Candidate) error {
	var rich []domain.Candidate
	for i := range candidates {
		if cat, ok := domain.CategoryFromSingular(candidates[i].Type); ok && cat.HasRichText() {
			rich = append(rich, candidates[i])
		}
	}
	if len(rich) == 0 {
		return nil
	}

	texts, err := s.texts.FetchTexts(ctx, tenantID, rich)
	if err != nil {
		return fmt.Errorf("enrich snippets: %w", err)
	}

	for i := range candidates {
		if text, ok := texts[candidates[i].Key()]; ok {
			candidates[i].Snippet = domain.TruncateSnippet(text, s.cfg.SnippetMaxChars)
		}
	}
	return nil
}

// applyURLs fills missing candidate URLs. A panicking or absent builder
// falls back to an empty string; link building never fails a query.
func (s *Service) applyURLs(candidates []domain.Candidate) {
	if s.urls == nil {
		return
	}
	for i := range candidates {
		if candidates[i].URL != "" {
			continue
		}
		candidates[i].URL = s.buildURL(&candidates[i])
	}
}

func (s *Service) buildURL(c *domain.Candidate) (url string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("URL builder panicked",
				zap.String("type", c.Type),
				zap.String("id", c.ID),
				zap.Any("panic", r),
			)
			url = ""
		}
	}()
	return s.urls(c.Type, c.ID, c.ContactID)
}
