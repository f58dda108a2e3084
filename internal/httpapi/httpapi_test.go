package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"jobpulse-engine/internal/config"
	"jobpulse-engine/internal/dashboard"
	"jobpulse-engine/internal/domain"
	"jobpulse-engine/internal/events"
	"jobpulse-engine/internal/logging"
	"jobpulse-engine/internal/ratelimit"
	"jobpulse-engine/internal/search"
	"jobpulse-engine/internal/store"
	"jobpulse-engine/internal/transport"
)

const providerBody = `{
  "message": "Success",
  "statuscode": "1",
  "data": [{"Jobid": "42", "jobTitle": "Go Developer", "companyName": "Acme"}],
  "premiumData": [],
  "common": {"total_records_found": 1, "totalpages": 1}
}`

type provider struct {
	status atomic.Int32
	hits   atomic.Int32
}

func (p *provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.hits.Add(1)
	if s := p.status.Load(); s != 0 {
		w.WriteHeader(int(s))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, providerBody)
}

type testEnv struct {
	srv      *httptest.Server
	provider *provider
	hub      *events.Hub
	cfgVal   *atomic.Value
	cfgPath  string
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	p := &provider{}
	ps := httptest.NewServer(p)
	t.Cleanup(ps.Close)

	tr := transport.New(ratelimit.New(0), transport.Config{
		Timeout:    2 * time.Second,
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	})
	scfg := search.DefaultConfig()
	scfg.BaseURL = ps.URL
	client := search.NewClient(scfg, tr)

	db, err := store.Open(ctx, filepath.Join(t.TempDir(), "jobpulse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	tracker := store.NewTracker(db)

	dir := t.TempDir()
	cfgPath, err := config.EnsureUserConfig(dir)
	require.NoError(t, err)
	var cfgVal atomic.Value
	cfgVal.Store(config.Default())

	hub := events.NewHub(8)
	mux := NewMux(Deps{
		Log:         logging.NewNop(),
		Searcher:    search.NewSession(client, time.Minute),
		Tracker:     tracker,
		Dashboard:   dashboard.NewAggregator(tracker, 5),
		Hub:         hub,
		CfgVal:      &cfgVal,
		UserCfgPath: cfgPath,
		LoadCfg:     func() (config.Config, error) { return config.Load(cfgPath) },
	})
	log := logging.NewNop()
	srv := httptest.NewServer(Chain(mux, RequestID, Recover(log), AccessLog(log), Cors))
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, provider: p, hub: hub, cfgVal: &cfgVal, cfgPath: cfgPath}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decodeAPIError(t *testing.T, b []byte) APIError {
	t.Helper()
	var e APIError
	require.NoError(t, json.Unmarshal(b, &e))
	return e
}

func TestHealth(t *testing.T) {
	env := newEnv(t)
	resp, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"ok":true`)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestSearchReturnsPage(t *testing.T) {
	env := newEnv(t)
	resp, body := env.do(t, http.MethodGet, "/search?keyword=go&page=1&pageSize=10&jobType=full-time,contract", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var page search.Page
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Listings, 1)
	assert.Equal(t, "42", page.Listings[0].ExternalID)
	assert.False(t, page.HasNextPage)

	// same search is answered from the session cache
	resp, _ = env.do(t, http.MethodGet, "/search?keyword=go&page=1&pageSize=10&jobType=full-time,contract", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), env.provider.hits.Load())
}

func TestSearchRejectsInvalidFilter(t *testing.T) {
	env := newEnv(t)

	cases := []struct {
		query string
		field string
	}{
		{"salaryMin=5000&salaryMax=100", "salaryMin"},
		{"experienceMin=9&experienceMax=2", "experienceMin"},
		{"page=two", "page"},
		{"pageSize=7", "pageSize"},
		{"fresherOnly=maybe", "fresherOnly"},
		{"jobType=gig", "jobType[0]"},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/search?"+tc.query, nil)
			require.NoError(t, err)
			req.Header.Set("X-Request-ID", "req-"+tc.field)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			e := decodeAPIError(t, b)
			assert.Equal(t, "invalid_filter", e.Error.Code)
			assert.Equal(t, tc.field, e.Error.Field)
			assert.Equal(t, "req-"+tc.field, e.Error.RequestID)
		})
	}
	assert.Zero(t, env.provider.hits.Load())
}

func TestSearchMapsProviderFailures(t *testing.T) {
	env := newEnv(t)

	env.provider.status.Store(http.StatusServiceUnavailable)
	resp, body := env.do(t, http.MethodGet, "/search?keyword=a", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "provider_unavailable", decodeAPIError(t, body).Error.Code)

	env.provider.status.Store(http.StatusNotFound)
	resp, body = env.do(t, http.MethodGet, "/search?keyword=b", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "provider_rejected", decodeAPIError(t, body).Error.Code)
}

func TestTrackedLifecycle(t *testing.T) {
	env := newEnv(t)
	listing := domain.JobListing{ExternalID: "42", Title: "Go Developer", Company: "Acme"}

	resp, body := env.do(t, http.MethodPost, "/tracked", listing)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var job domain.TrackedJob
	require.NoError(t, json.Unmarshal(body, &job))
	assert.Equal(t, domain.StatusInterested, job.Status)
	id := job.ID
	path := "/tracked/" + jsonNumber(id)

	resp, body = env.do(t, http.MethodPost, path+"/status", map[string]string{"status": "applied"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	// saving again keeps the record and its status
	resp, body = env.do(t, http.MethodPost, "/tracked", listing)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &job))
	assert.Equal(t, id, job.ID)
	assert.Equal(t, domain.StatusApplied, job.Status)

	resp, body = env.do(t, http.MethodPost, path+"/status", map[string]string{"status": "ghosted"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "status", decodeAPIError(t, body).Error.Field)

	resp, body = env.do(t, http.MethodPut, path+"/notes", map[string]string{"notes": "call back Friday"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &job))
	assert.Equal(t, "call back Friday", job.Notes)

	resp, body = env.do(t, http.MethodGet, path+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var changes []domain.StatusChange
	require.NoError(t, json.Unmarshal(body, &changes))
	require.Len(t, changes, 1)
	assert.Equal(t, domain.StatusApplied, changes[0].To)

	resp, body = env.do(t, http.MethodGet, "/tracked?status=applied", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var jobs []domain.TrackedJob
	require.NoError(t, json.Unmarshal(body, &jobs))
	assert.Len(t, jobs, 1)

	resp, body = env.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap dashboard.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, 1, snap.SavedJobs)
	assert.Equal(t, 1, snap.Applications)

	resp, _ = env.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decodeAPIError(t, body).Error.Code)
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestTrackedRejectsBadInput(t *testing.T) {
	env := newEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/tracked/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/tracked", domain.JobListing{Title: "no id"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_listing", decodeAPIError(t, body).Error.Code)

	resp, _ = env.do(t, http.MethodPost, "/tracked", map[string]any{"bogus": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/tracked?order=salary", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "order", decodeAPIError(t, body).Error.Field)

	resp, _ = env.do(t, http.MethodGet, "/tracked?status=nope", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/tracked", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/tracked/999/status", map[string]string{"status": "applied"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTrackedChangesArePublished(t *testing.T) {
	env := newEnv(t)
	ch, unsubscribe := env.hub.Subscribe()
	defer unsubscribe()

	resp, _ := env.do(t, http.MethodPost, "/tracked", domain.JobListing{ExternalID: "7", Title: "T", Company: "C"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	select {
	case raw := <-ch:
		var evt events.Event
		require.NoError(t, json.Unmarshal([]byte(raw), &evt))
		assert.Equal(t, events.TypeJobTracked, evt.Type)
		assert.NotEmpty(t, evt.RequestID)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestConfigGetAndPut(t *testing.T) {
	env := newEnv(t)

	resp, body := env.do(t, http.MethodGet, "/config", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cfg config.Config
	require.NoError(t, json.Unmarshal(body, &cfg))
	assert.Equal(t, config.Default().App.Port, cfg.App.Port)

	bad := cfg
	bad.App.Port = 0
	resp, body = env.do(t, http.MethodPut, "/config", bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "app.port")

	cfg.Dashboard.RecentLimit = 25
	resp, body = env.do(t, http.MethodPut, "/config", cfg)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 25, env.cfgVal.Load().(config.Config).Dashboard.RecentLimit)

	onDisk, err := config.Load(env.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 25, onDisk.Dashboard.RecentLimit)

	resp, body = env.do(t, http.MethodGet, "/config/path", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "config.yml")
}

func TestProviderTokenEndpoint(t *testing.T) {
	keyring.MockInit()
	env := newEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/secrets/provider-token", map[string]string{"token": "s3cret"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	tok, err := keyring.Get("jobpulse", "provider-token")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", tok)

	resp, body := env.do(t, http.MethodPost, "/api/secrets/provider-token", map[string]string{"token": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "token", decodeAPIError(t, body).Error.Field)

	resp, _ = env.do(t, http.MethodDelete, "/api/secrets/provider-token", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestEventsStream(t *testing.T) {
	env := newEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	next := func() string {
		for {
			line, err := rd.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}
	assert.Contains(t, next(), `"type":"ping"`)

	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	env.hub.Publish(events.MakeEvent("", events.TypeJobUntracked, 1, map[string]any{"id": 3}))
	assert.Contains(t, next(), `"type":"job_untracked"`)
}

func TestRecoverWritesJSONError(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		RequestID, Recover(logging.NewNop()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeAPIError(t, rec.Body.Bytes())
	assert.Equal(t, "internal_error", e.Error.Code)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), e.Error.RequestID)
}

func TestCorsPreflight(t *testing.T) {
	h := Cors(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodOptions, "/tracked", nil)
	req.Header.Set("Origin", "tauri://localhost")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "tauri://localhost", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLimiterDeadlineMapsToUnavailable(t *testing.T) {
	err := fmt.Errorf("search: transport: rate limit: %w",
		fmt.Errorf("ratelimit: next grant is past the deadline: %w", context.DeadlineExceeded))
	rec := httptest.NewRecorder()
	writeErr(rec, httptest.NewRequest(http.MethodGet, "/search", nil), logging.NewNop(), err)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "canceled", decodeAPIError(t, rec.Body.Bytes()).Error.Code)
}
