package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-core/internal/api/handlers"
	"github.com/dvloznov/statement-core/internal/jobs/inmemory"
	"github.com/dvloznov/statement-core/internal/logger"
	"github.com/dvloznov/statement-core/internal/pipeline"
	"github.com/dvloznov/statement-core/internal/recurring"
	"github.com/dvloznov/statement-core/internal/store/memory"
)

const statementCSV = `Account Number: 62012345678
Date,Description,Amount,Balance
2025/01/15,WOOLWORTHS SANDTON,-350.50,1649.50
2025/01/16,SALARY ACME,15000.00,16649.50
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := memory.NewStore()
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, jobStore)
	t.Cleanup(func() { _ = queue.Close() })

	ingestor := pipeline.NewIngestor(pipeline.Options{Merchants: s, Transactions: s})
	router := NewRouter(Handlers{
		Statements: handlers.NewStatementsHandler(ingestor, 1<<20),
		Recurring:  handlers.NewRecurringHandler(recurring.NewDetector(s, s), s, queue),
		Merchants:  handlers.NewMerchantsHandler(s),
		Jobs:       handlers.NewJobsHandler(jobStore),
	}, "default", logger.NewWithWriter(io.Discard))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, user string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_IngestIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	body := handlers.IngestRequest{
		FileContent: base64.StdEncoding.EncodeToString([]byte(statementCSV)),
		FileName:    "fnb-jan.csv",
		FileType:    "text/csv",
	}

	first := post(t, srv.URL+"/api/statements/ingest", "user-1", body)
	require.Equal(t, http.StatusOK, first.StatusCode)
	var got handlers.IngestResponse
	require.NoError(t, json.NewDecoder(first.Body).Decode(&got))

	assert.True(t, got.Success)
	assert.Equal(t, "FNB", got.AccountInfo.BankName)
	assert.Equal(t, "ZAR", got.AccountInfo.Currency)
	assert.Equal(t, 2, got.Summary.TotalTransactions)
	assert.Equal(t, handlers.DateRangeResponse{From: "2025-01-15", To: "2025-01-16"}, got.Summary.DateRange)
	require.Len(t, got.Transactions, 2)
	assert.Equal(t, "350.50", got.Transactions[0].Amount.String())
	assert.Equal(t, "debit", got.Transactions[0].Type)
	assert.Equal(t, "credit", got.Transactions[1].Type)
	require.NotNil(t, got.Persisted)
	assert.Equal(t, 2, got.Persisted.Inserted)

	second := post(t, srv.URL+"/api/statements/ingest", "user-1", body)
	require.Equal(t, http.StatusOK, second.StatusCode)
	require.NoError(t, json.NewDecoder(second.Body).Decode(&got))
	assert.Equal(t, 0, got.Persisted.Inserted)
	assert.Equal(t, 2, got.Persisted.Skipped)

	other := post(t, srv.URL+"/api/statements/ingest", "user-2", body)
	require.NoError(t, json.NewDecoder(other.Body).Decode(&got))
	assert.Equal(t, 2, got.Persisted.Inserted, "duplicate suppression is per user")
}

func TestRouter_UnsupportedFormat(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv.URL+"/api/statements/ingest", "", handlers.IngestRequest{
		FileContent: base64.StdEncoding.EncodeToString([]byte("PK")),
		FileName:    "statement.zip",
		FileType:    "application/zip",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "unsupported file format")
}

func TestRouter_HealthAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	missing, err := http.Get(srv.URL + "/api/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestRouter_DetectAsyncThenGetJob(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/api/recurring/detect/async", "user-1", handlers.DetectRequest{LookbackMonths: 3})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var accepted map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/jobs/"+accepted["job_id"].(string), nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "user-1")
	job, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer job.Body.Close()
	assert.Equal(t, http.StatusOK, job.StatusCode)
}
