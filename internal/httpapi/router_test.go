package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/rickgao/bankrates/internal/cache"
	"github.com/rickgao/bankrates/internal/contact"
	"github.com/rickgao/bankrates/internal/httpapi"
	"github.com/rickgao/bankrates/internal/ingest"
	"github.com/rickgao/bankrates/internal/latest"
	"github.com/rickgao/bankrates/internal/metrics"
	"github.com/rickgao/bankrates/internal/model"
	"github.com/rickgao/bankrates/internal/notify"
	"github.com/rickgao/bankrates/internal/source"
	"github.com/rickgao/bankrates/internal/store"
)

// --- Mock ContactService ---
type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Submit(ctx context.Context, req contact.SubmitRequest) (model.ContactMessage, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.ContactMessage), args.Error(1)
}

func (m *MockContactService) List(ctx context.Context, f store.ContactFilter) ([]model.ContactMessage, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ContactMessage), args.Error(1)
}

var _ httpapi.ContactService = (*MockContactService)(nil)

type recorder struct {
	mu      sync.Mutex
	entries []model.ResponseLog
}

func (r *recorder) Record(e model.ResponseLog) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return true
}

func (r *recorder) all() []model.ResponseLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ResponseLog(nil), r.entries...)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type reports struct {
	report ingest.CycleReport
	ok     bool
}

func (r reports) LastReport() (ingest.CycleReport, bool) { return r.report, r.ok }

type rateResponse struct {
	Results []struct {
		Source   string `json:"source"`
		Currency string `json:"currency"`
		Bid      string `json:"bid"`
		Ask      string `json:"ask"`
	} `json:"results"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// --- Test Suite ---
type RouterTestSuite struct {
	suite.Suite
	router   *gin.Engine
	rates    *store.MemoryRates
	contacts *MockContactService
	recorder *recorder
	deps     httpapi.Deps
	base     time.Time
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.base = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	s.rates = store.NewMemoryRates()
	s.insert(model.SourcePrivatBank, model.CurrencyUSD, "27.50", "27.80", 0)
	s.insert(model.SourceMonoBank, model.CurrencyEUR, "40.10", "40.90", time.Minute)
	s.insert(model.SourcePrivatBank, model.CurrencyUSD, "27.60", "27.90", 2*time.Minute)

	s.contacts = new(MockContactService)
	s.recorder = &recorder{}

	s.deps = httpapi.Deps{
		Rates:     s.rates,
		Latest:    latest.New(cache.NewMemory(), s.rates, time.Minute, logger),
		Contacts:  s.contacts,
		Sources:   source.Defaults(),
		Responses: s.recorder,
		Health: httpapi.HealthChecker{
			Deps: map[string]httpapi.Pinger{"database": pinger{}, "cache": pinger{}},
		},
		Logger: logger,
	}
	s.router = httpapi.NewRouter(s.deps)
}

func (s *RouterTestSuite) insert(src model.Source, cur model.Currency, bid, ask string, offset time.Duration) {
	err := s.rates.Insert(context.Background(), model.Quote{
		Source:     src,
		Currency:   cur,
		Bid:        decimal.RequireFromString(bid),
		Ask:        decimal.RequireFromString(ask),
		ObservedAt: s.base.Add(offset),
	})
	s.Require().NoError(err)
}

func (s *RouterTestSuite) do(method, url, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// --- Rates ---

func (s *RouterTestSuite) TestListRates_Default() {
	w := s.do(http.MethodGet, "/api/v1/rates", "")
	s.Equal(http.StatusOK, w.Code)

	var resp rateResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Results, 3)
	s.Equal(store.DefaultListLimit, resp.Limit)
	s.Equal("27.60", resp.Results[0].Bid)
	s.Equal("27.90", resp.Results[0].Ask)
}

func (s *RouterTestSuite) TestListRates_Filters() {
	w := s.do(http.MethodGet, "/api/v1/rates?source=privatbank&bid__lt=27.60&limit=5", "")
	s.Equal(http.StatusOK, w.Code)

	var resp rateResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Results, 1)
	s.Equal("27.50", resp.Results[0].Bid)
	s.Equal(5, resp.Limit)

	w = s.do(http.MethodGet, "/api/v1/rates?currency=EUR&ask__gte=40.90", "")
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Results, 1)
	s.Equal("monobank", resp.Results[0].Source)
}

func (s *RouterTestSuite) TestListRates_BadInput() {
	for _, url := range []string{
		"/api/v1/rates?bid__gt=abc",
		"/api/v1/rates?source=nbu",
		"/api/v1/rates?currency=GBP",
		"/api/v1/rates?limit=-1",
		"/api/v1/rates?offset=x",
	} {
		w := s.do(http.MethodGet, url, "")
		s.Equal(http.StatusBadRequest, w.Code, url)
	}
}

func (s *RouterTestSuite) TestLatestRates() {
	w := s.do(http.MethodGet, "/api/v1/rates/latest", "")
	s.Equal(http.StatusOK, w.Code)

	var resp rateResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Results, 2)
	s.Equal("monobank", resp.Results[0].Source)
	s.Equal("privatbank", resp.Results[1].Source)
	s.Equal("27.60", resp.Results[1].Bid)
}

func (s *RouterTestSuite) TestChoicesAndSources() {
	w := s.do(http.MethodGet, "/api/v1/choices", "")
	s.Equal(http.StatusOK, w.Code)
	var choices struct {
		Currencies []string `json:"currencies"`
		Sources    []string `json:"sources"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &choices))
	s.Equal([]string{"USD", "EUR", "UAH"}, choices.Currencies)
	s.Len(choices.Sources, 5)

	w = s.do(http.MethodGet, "/api/v1/sources", "")
	s.Equal(http.StatusOK, w.Code)
	var sources struct {
		Results []struct {
			ID        string   `json:"id"`
			Name      string   `json:"name"`
			Endpoints []string `json:"endpoints"`
		} `json:"results"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &sources))
	s.Require().Len(sources.Results, 5)
	s.Equal("privatbank", sources.Results[0].ID)
	s.NotEmpty(sources.Results[0].Endpoints)
}

// --- Contact ---

func (s *RouterTestSuite) TestSubmitContact_Success() {
	req := contact.SubmitRequest{EmailFrom: "a@example.com", Subject: "Hi", Message: "Hello"}
	msg := model.ContactMessage{ID: uuid.New(), EmailFrom: req.EmailFrom, Subject: req.Subject, Message: req.Message}
	s.contacts.On("Submit", mock.Anything, req).Return(msg, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/contact", `{"email_from":"a@example.com","subject":"Hi","message":"Hello"}`)
	s.Equal(http.StatusCreated, w.Code)

	var got model.ContactMessage
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &got))
	s.Equal(msg.ID, got.ID)
	s.contacts.AssertExpectations(s.T())
}

func (s *RouterTestSuite) TestSubmitContact_Errors() {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", contact.ErrValidation, http.StatusBadRequest},
		{"send failure", &notify.SendError{Sink: notify.SinkSMTP, Err: errors.New("dial tcp: refused")}, http.StatusBadGateway},
		{"store failure", errors.New("store contact message: boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.contacts.On("Submit", mock.Anything, mock.Anything).Return(model.ContactMessage{}, tt.err).Once()

			w := s.do(http.MethodPost, "/api/v1/contact", `{"email_from":"a@example.com","subject":"Hi","message":"Hello"}`)
			s.Equal(tt.want, w.Code)
			s.contacts.AssertExpectations(s.T())
		})
	}
}

func (s *RouterTestSuite) TestSubmitContact_BadJSON() {
	w := s.do(http.MethodPost, "/api/v1/contact", `{"email_from":`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.contacts.AssertNotCalled(s.T(), "Submit")
}

func (s *RouterTestSuite) TestListContacts() {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	msgs := []model.ContactMessage{{ID: uuid.New(), EmailFrom: "a@example.com"}}
	s.contacts.On("List", mock.Anything, mock.MatchedBy(func(f store.ContactFilter) bool {
		return f.Created.Gte != nil && f.Created.Gte.Equal(from) && f.Created.Lte == nil && f.Limit == store.DefaultListLimit
	})).Return(msgs, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/contact?created__gte=2024-01-01T00:00:00Z", "")
	s.Equal(http.StatusOK, w.Code)
	s.contacts.AssertExpectations(s.T())

	w = s.do(http.MethodGet, "/api/v1/contact?created__lte=yesterday", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

// --- Health & middleware ---

func (s *RouterTestSuite) TestHealth_Healthy() {
	w := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, w.Code)

	var health httpapi.Health
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &health))
	s.Equal(httpapi.StatusHealthy, health.Status)
	s.Equal("connected", health.Components["database"])
}

func (s *RouterTestSuite) TestHealth_Unhealthy() {
	s.deps.Health.Deps["cache"] = pinger{err: errors.New("connection refused")}
	s.router = httpapi.NewRouter(s.deps)

	w := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusServiceUnavailable, w.Code)

	var health httpapi.Health
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &health))
	s.Equal(httpapi.StatusUnhealthy, health.Status)
}

func (s *RouterTestSuite) TestHealth_DegradedAfterFailedCycle() {
	s.deps.Health.Reports = reports{ok: true, report: ingest.CycleReport{
		StartedAt: s.base,
		Outcomes: []ingest.Outcome{
			{Source: model.SourceMinfin, Status: ingest.StatusFailed, Reason: "timeout"},
			{Source: model.SourcePUMB, Status: ingest.StatusWritten, Written: 2},
		},
	}}
	s.router = httpapi.NewRouter(s.deps)

	w := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, w.Code)

	var health httpapi.Health
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &health))
	s.Equal(httpapi.StatusDegraded, health.Status)
	s.Contains(health.Components, "last_cycle")
}

func (s *RouterTestSuite) TestRequestID() {
	w := s.do(http.MethodGet, "/api/v1/choices", "")
	s.NotEmpty(w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/choices", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal("abc-123", w.Header().Get("X-Request-ID"))
}

func (s *RouterTestSuite) TestResponsesAreRecorded() {
	s.do(http.MethodGet, "/api/v1/choices", "")
	s.do(http.MethodGet, "/nope", "")

	entries := s.recorder.all()
	s.Require().Len(entries, 2)
	s.Equal("/api/v1/choices", entries[0].Path)
	s.Equal(http.StatusOK, entries[0].StatusCode)
	s.Equal("/nope", entries[1].Path)
	s.Equal(http.StatusNotFound, entries[1].StatusCode)
}

func (s *RouterTestSuite) TestMetricsRoute() {
	w := s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusNotFound, w.Code)

	s.deps.Metrics = metrics.New()
	s.router = httpapi.NewRouter(s.deps)

	s.do(http.MethodGet, "/api/v1/choices", "")
	w = s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `route="/api/v1/choices"`)
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func TestHealthHandler(t *testing.T) {
	h := httpapi.HealthChecker{
		Deps:    map[string]httpapi.Pinger{"database": pinger{}},
		Reports: reports{},
	}

	w := httptest.NewRecorder()
	h.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var health httpapi.Health
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Components["last_cycle"] != "pending" {
		t.Errorf("last_cycle = %v, want pending", health.Components["last_cycle"])
	}
}
