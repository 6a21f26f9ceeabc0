package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/answerdex/internal/domain"
	answeruc "github.com/kailas-cloud/answerdex/internal/usecase/answer"
	guarduc "github.com/kailas-cloud/answerdex/internal/usecase/guard"
	healthuc "github.com/kailas-cloud/answerdex/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/answerdex/internal/usecase/indexer"
	"github.com/kailas-cloud/answerdex/internal/usecase/retrieval"
)

// --- Mocks ---

type fakeGuardStore struct {
	snapshots map[string]domain.UsageSnapshot
}

func (f *fakeGuardStore) Load(_ context.Context, tenantID string) (domain.UsageSnapshot, error) {
	snap, ok := f.snapshots[tenantID]
	if !ok {
		return domain.UsageSnapshot{}, domain.ErrTenantUnknown
	}
	return snap, nil
}

func (f *fakeGuardStore) Save(_ context.Context, snap *domain.UsageSnapshot) error {
	f.snapshots[snap.TenantID] = *snap
	return nil
}

func (f *fakeGuardStore) ResetDaily(_ context.Context, tenantID, day string) error {
	snap := f.snapshots[tenantID]
	snap.DailyUsed = 0
	snap.LastDailyReset = day
	f.snapshots[tenantID] = snap
	return nil
}

func (f *fakeGuardStore) ResetMonthly(_ context.Context, tenantID, month string) error {
	snap := f.snapshots[tenantID]
	snap.MonthlySpendCents = 0
	snap.LastMonthlyReset = month
	f.snapshots[tenantID] = snap
	return nil
}

func (f *fakeGuardStore) RecordSuccess(_ context.Context, tenantID string, spendCents int64) error {
	snap := f.snapshots[tenantID]
	snap.DailyUsed++
	snap.MonthlySpendCents += spendCents
	f.snapshots[tenantID] = snap
	return nil
}

type fakeAnswerGuard struct{}

func (fakeAnswerGuard) CheckAndPrepare(_ context.Context, _ string) (domain.UsageSnapshot, error) {
	return domain.UsageSnapshot{Enabled: true, DailyLimit: 10}, nil
}

func (fakeAnswerGuard) RecordSuccess(_ context.Context, _ string, _ int64) error { return nil }

type fakeRetriever struct{ result retrieval.Result }

func (f *fakeRetriever) Retrieve(_ context.Context, _, _ string) (retrieval.Result, error) {
	return f.result, nil
}

type fakeModel struct{ raw string }

func (f *fakeModel) GenerateAnswer(_ context.Context, _ domain.AnswerPayload) (string, error) {
	return f.raw, nil
}

type fakeIndexStore struct {
	upserts int
	deletes int
}

func (f *fakeIndexStore) Upsert(_ context.Context, _ *domain.IndexRecord) error {
	f.upserts++
	return nil
}

func (f *fakeIndexStore) Delete(_ context.Context, _ string, _ domain.Category, _ string) error {
	f.deletes++
	return nil
}

type fakeIndexEmbedder struct{}

func (fakeIndexEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type fakePinger struct{}

func (fakePinger) Ping(_ context.Context) error { return nil }

type serverFixture struct {
	router     chi.Router
	guardStore *fakeGuardStore
	indexStore *fakeIndexStore
}

func newServerFixture(modelRaw string, candidates []domain.Candidate) *serverFixture {
	logger := zap.NewNop()

	guardStore := &fakeGuardStore{snapshots: make(map[string]domain.UsageSnapshot)}
	guardSvc := guarduc.New(true, guardStore, logger)

	answerSvc := answeruc.New(
		answeruc.Config{
			Enabled:                true,
			ThinEvidenceFactor:     0.65,
			ThinEvidenceMax:        3,
			SemanticOnlyFactor:     0.75,
			LowConfidenceThreshold: 0.55,
		},
		fakeAnswerGuard{},
		&fakeRetriever{result: retrieval.Result{Candidates: candidates, LexicalCount: len(candidates)}},
		&fakeModel{raw: modelRaw},
		logger,
	)

	indexStore := &fakeIndexStore{}
	indexerSvc := indexeruc.New(indexStore, fakeIndexEmbedder{}, logger)

	healthSvc := healthuc.New(fakePinger{}, nil, nil)

	server := NewServer(answerSvc, indexerSvc, guardSvc, healthSvc, logger)
	router := chi.NewRouter()
	server.Register(router)

	return &serverFixture{router: router, guardStore: guardStore, indexStore: indexStore}
}

func doJSON(t *testing.T, router chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestAnswerEndpoint_OK(t *testing.T) {
	candidates := []domain.Candidate{
		{Type: "contact", ID: "c1", Label: "Dana Builder", Snippet: "Remodel notes", Score: 0.9},
		{Type: "contact", ID: "c2", Label: "Bo Mason", Score: 0.7},
		{Type: "contact", ID: "c3", Label: "Lee Tiler", Score: 0.6},
		{Type: "contact", ID: "c4", Label: "Kim Roofer", Score: 0.5},
	}
	raw := `{"no_answer":false,"answer":"Dana handled it.","citations":[{"type":"contact","id":"c1"}],"confidence":0.9}`
	fx := newServerFixture(raw, candidates)

	rr := doJSON(t, fx.router, "POST", "/v1/tenants/t1/answer", `{"query":"who handled the remodel?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var res domain.AnswerResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.OK || res.Answer != "Dana handled it." {
		t.Errorf("result = %+v", res)
	}
	if len(res.Citations) != 1 || res.Citations[0].Label != "Dana Builder" {
		t.Errorf("citations = %+v", res.Citations)
	}
}

func TestAnswerEndpoint_InvalidBody(t *testing.T) {
	fx := newServerFixture("{}", nil)

	rr := doJSON(t, fx.router, "POST", "/v1/tenants/t1/answer", "{broken")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != codeBadRequest {
		t.Errorf("code = %s, want %s", resp.Code, codeBadRequest)
	}
}

func TestUpsertRecordEndpoint(t *testing.T) {
	fx := newServerFixture("{}", nil)

	body := `{"category":"contacts","object_id":"c1","label":"Dana Builder","text":"Remodel notes"}`
	rr := doJSON(t, fx.router, "POST", "/v1/tenants/t1/records", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp upsertRecordResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Indexed {
		t.Error("expected indexed=true")
	}
	if fx.indexStore.upserts != 1 {
		t.Errorf("upserts = %d, want 1", fx.indexStore.upserts)
	}
}

func TestUpsertRecordEndpoint_UnknownCategory(t *testing.T) {
	fx := newServerFixture("{}", nil)

	body := `{"category":"widgets","object_id":"c1","label":"x","text":"y"}`
	rr := doJSON(t, fx.router, "POST", "/v1/tenants/t1/records", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestUpsertRecordEndpoint_MissingObjectID(t *testing.T) {
	fx := newServerFixture("{}", nil)

	body := `{"category":"contacts","label":"x","text":"y"}`
	rr := doJSON(t, fx.router, "POST", "/v1/tenants/t1/records", body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestDeleteRecordEndpoint(t *testing.T) {
	fx := newServerFixture("{}", nil)

	rr := doJSON(t, fx.router, "DELETE", "/v1/tenants/t1/records/contacts/c1", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	if fx.indexStore.deletes != 1 {
		t.Errorf("deletes = %d, want 1", fx.indexStore.deletes)
	}
}

func TestAssistantSettings_RoundTrip(t *testing.T) {
	fx := newServerFixture("{}", nil)

	rr := doJSON(t, fx.router, "PUT", "/v1/tenants/t1/assistant",
		`{"enabled":true,"daily_request_limit":25,"monthly_cap_cents":500}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp usageResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Enabled || resp.DailyRequestLimit != 25 {
		t.Errorf("settings not applied: %+v", resp)
	}
	if resp.MonthlyCapCents == nil || *resp.MonthlyCapCents != 500 {
		t.Errorf("monthly cap = %v, want 500", resp.MonthlyCapCents)
	}
	if resp.DailyRemaining != 25 {
		t.Errorf("daily remaining = %d, want 25", resp.DailyRemaining)
	}
}

func TestAssistantSettings_NullCapMeansNoCap(t *testing.T) {
	fx := newServerFixture("{}", nil)

	rr := doJSON(t, fx.router, "PUT", "/v1/tenants/t1/assistant",
		`{"enabled":true,"daily_request_limit":25,"monthly_cap_cents":null}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	if strings.Contains(rr.Body.String(), "monthly_cap_cents") {
		t.Errorf("uncapped tenants must omit the cap field: %s", rr.Body.String())
	}
}

func TestAssistantSettings_NegativeLimitRejected(t *testing.T) {
	fx := newServerFixture("{}", nil)

	rr := doJSON(t, fx.router, "PUT", "/v1/tenants/t1/assistant",
		`{"enabled":true,"daily_request_limit":-1}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestAssistantUsage_UnknownTenant(t *testing.T) {
	fx := newServerFixture("{}", nil)

	rr := doJSON(t, fx.router, "GET", "/v1/tenants/ghost/assistant/usage", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != codeTenantNotFound {
		t.Errorf("code = %s, want %s", resp.Code, codeTenantNotFound)
	}
}

func TestHealthEndpoint(t *testing.T) {
	fx := newServerFixture("{}", nil)

	rr := doJSON(t, fx.router, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestTenantRateLimiter(t *testing.T) {
	limiter := NewTenantRateLimiter(1, 2)
	router := chi.NewRouter()
	router.Route("/v1/tenants/{tenantID}", func(tr chi.Router) {
		tr.Use(limiter.Middleware)
		tr.Get("/assistant/usage", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := doJSON(t, router, "GET", "/v1/tenants/t1/assistant/usage", "")
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst requests rejected: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("over-burst request allowed: %v", codes)
	}

	// A different tenant has its own bucket.
	rr := doJSON(t, router, "GET", "/v1/tenants/t2/assistant/usage", "")
	if rr.Code != http.StatusOK {
		t.Errorf("tenant t2 throttled by t1's bucket: %d", rr.Code)
	}
}
