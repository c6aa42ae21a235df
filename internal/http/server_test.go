package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"budgetwise/internal/auth"
	"budgetwise/internal/budget"
	"budgetwise/internal/cache"
	"budgetwise/internal/core"
	"budgetwise/internal/export"
	"budgetwise/internal/services"
	"budgetwise/internal/storage/memory"
)

type testServer struct {
	*Server
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	store := memory.New()
	sessionCache := cache.NewLRU[string, core.Session](100, time.Hour)
	sessions := auth.NewSessions(store, sessionCache, time.Hour, log)

	srv := NewServer(Config{Addr: ":0"}, Deps{
		Users:    services.NewUserService(store, sessions, auth.NewHasher(bcrypt.MinCost), log),
		Expenses: services.NewExpenseService(store, services.NopPublisher{}, log),
		Incomes:  services.NewIncomeService(store, services.NopPublisher{}, log),
		Reports:  services.NewReportService(store, store, store, log),
		Planner:  budget.NewPlanner(store, log),
		Sessions: sessions,
		Ready:    store.Ping,
		Caches:   map[string]StatsProvider{"sessions": sessionCache},
	}, log)
	srv.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	return &testServer{Server: srv, store: store}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(auth.HeaderToken, token)
	}
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) register(t *testing.T, email string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Test", "email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func decodeMsg(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out msgResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out.Msg
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "ana@example.com")

	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": "ANA@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", decodeMsg(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Bob", "email": "bob@example.com", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeMsg(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/expenses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token, authorization denied", decodeMsg(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/expenses", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is not valid", decodeMsg(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/expenses", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpenseEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "e@example.com")
	other := ts.register(t, "other@example.com")

	rec := ts.do(t, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 12.5, "category": "Food", "description": "lunch", "date": "2024-02-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID      int64   `json:"id"`
		Amount  float64 `json:"amount"`
		Utility int     `json:"utility"`
		Month   int     `json:"month"`
		Year    int     `json:"year"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 12.5, created.Amount)
	assert.Equal(t, core.DefaultUtility, created.Utility)
	assert.Equal(t, 2, created.Month)
	assert.Equal(t, 2024, created.Year)

	rec = ts.do(t, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": 40, "category": "Rent", "utility": -1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/expenses", token, map[string]any{"amount": 40, "category": "Rent"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var list []expenseView
	rec = ts.do(t, http.MethodGet, "/api/expenses", token, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Rent", list[0].Category, "newest first")

	rec = ts.do(t, http.MethodGet, "/api/expenses/monthly?month=2&year=2024", token, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = ts.do(t, http.MethodGet, "/api/expenses/monthly?month=13", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := "/api/expenses/" + jsonID(created.ID)
	rec = ts.do(t, http.MethodPut, path, other, map[string]any{"amount": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authorized", decodeMsg(t, rec))

	rec = ts.do(t, http.MethodPut, path, token, map[string]any{"amount": 15, "utility": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated expenseView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, int64(1500), updated.Amount.Cents)
	assert.Equal(t, 3, updated.Utility)
	assert.Equal(t, "lunch", updated.Description, "absent fields are kept")

	rec = ts.do(t, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Expense deleted successfully", decodeMsg(t, rec))

	rec = ts.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Expense not found", decodeMsg(t, rec))
}

func TestIncomeEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "i@example.com")

	rec := ts.do(t, http.MethodPost, "/api/incomes", token, map[string]any{
		"amount": "2500.00", "source": "Salary", "date": "2024-03-01T09:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created incomeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Salary", created.Source)

	rec = ts.do(t, http.MethodPost, "/api/incomes", token, map[string]any{"amount": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "source is required")

	rec = ts.do(t, http.MethodPut, "/api/incomes/"+jsonID(created.ID), token, map[string]any{"source": "Bonus"})
	require.Equal(t, http.StatusOK, rec.Code)

	var list []incomeView
	rec = ts.do(t, http.MethodGet, "/api/incomes/monthly?year=2024", token, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Bonus", list[0].Source)

	rec = ts.do(t, http.MethodDelete, "/api/incomes/999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Income not found", decodeMsg(t, rec))

	rec = ts.do(t, http.MethodDelete, "/api/incomes/"+jsonID(created.ID), token, nil)
	assert.Equal(t, "Income deleted successfully", decodeMsg(t, rec))
}

type allocationJSON struct {
	Category            string  `json:"category"`
	AllocatedAmount     float64 `json:"allocatedAmount"`
	PreviousMonthAmount float64 `json:"previousMonthAmount"`
	Utility             int     `json:"utility"`
	RecommendationNote  string  `json:"recommendationNote"`
}

type optimizeJSON struct {
	Success            bool             `json:"success"`
	Message            string           `json:"message"`
	Error              string           `json:"error"`
	Data               []allocationJSON `json:"data"`
	Month              int              `json:"month"`
	Year               int              `json:"year"`
	TotalBudget        float64          `json:"totalBudget"`
	OptimizationMethod string           `json:"optimizationMethod"`
}

func TestOptimizeEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "o@example.com")
	for _, e := range []map[string]any{
		{"amount": 200, "category": "Food", "utility": 1, "date": "2024-02-05"},
		{"amount": 300, "category": "Shopping", "utility": 7, "date": "2024-02-20"},
	} {
		require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/expenses", token, e).Code)
	}

	optimize := func(query string) (int, optimizeJSON) {
		rec := ts.do(t, http.MethodGet, "/api/expenses/optimize?"+query, token, nil)
		var out optimizeJSON
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
		return rec.Code, out
	}

	code, out := optimize("month=3&year=2024&budget=400")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, out.Success)
	assert.Equal(t, "utility", out.OptimizationMethod)
	assert.Equal(t, 400.0, out.TotalBudget)
	require.Len(t, out.Data, 2)
	assert.Equal(t, allocationJSON{"Food", 220, 200, 1, "Allocated same or increased by 10.0%"}, out.Data[0])
	assert.Equal(t, "Shopping", out.Data[1].Category)
	assert.Equal(t, 180.0, out.Data[1].AllocatedAmount)

	code, out = optimize("month=3&year=2024&budget=400&method=proportional")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 160.0, out.Data[0].AllocatedAmount)
	assert.Equal(t, 240.0, out.Data[1].AllocatedAmount)

	code, out = optimize("month=5&year=2024&budget=1000")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, out.Data, 3, "no history gives the default split")
	assert.Equal(t, 500.0, out.Data[0].AllocatedAmount)

	code, out = optimize("month=3&budget=400")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, out.Success)
	assert.Equal(t, msgOptimizeMissing, out.Message)

	for _, q := range []string{"month=x&year=2024&budget=400", "month=3&year=2024&budget=-5", "month=13&year=2024&budget=400"} {
		code, out = optimize(q)
		assert.Equal(t, http.StatusBadRequest, code, q)
		assert.Equal(t, msgOptimizeInvalid, out.Message, q)
	}

	code, out = optimize("month=3&year=2024&budget=400&method=unsupported")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.False(t, out.Success)
	assert.Equal(t, msgOptimizeFailed, out.Message)
	assert.Equal(t, budget.ErrInvalidMethod.Error(), out.Error)

	code, out = optimize("month=9&year=2024&budget=400&method=unsupported")
	require.Equal(t, http.StatusOK, code, "no spending last month uses the default split for any method")
	assert.True(t, out.Success)
	require.Len(t, out.Data, 3)
	assert.Equal(t, "Essentials", out.Data[0].Category)
	assert.Equal(t, 200.0, out.Data[0].AllocatedAmount)
}

func TestOptimizeEnvelopes(t *testing.T) {
	body, err := json.Marshal(newOptimizeResponse(budget.Plan{
		Period: core.Period{Year: 2024, Month: 3},
		Total:  core.Cents(40000),
		Method: budget.MethodUtility,
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":[],"month":3,"year":2024,"totalBudget":400,"optimizationMethod":"utility"}`, string(body))

	body, err = json.Marshal(optimizeFailure{Message: msgOptimizeMissing})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"message":"Month, year and budget are required parameters"}`, string(body))
}

func TestExpenseLimitAndSummary(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "l@example.com")

	for _, body := range []any{map[string]any{"limit": -1}, map[string]any{"limit": "100"}, map[string]any{}} {
		rec := ts.do(t, http.MethodPost, "/api/user/set-expense-limit", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, invalidLimitMsg, decodeMsg(t, rec))
	}

	rec := ts.do(t, http.MethodPost, "/api/user/set-expense-limit", token, map[string]any{"limit": 100})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"limit":100,"message":"Expense limit updated successfully"}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/user/get-expense-limit", token, nil)
	assert.JSONEq(t, `{"limit":100,"message":"Expense limit retrieved successfully"}`, rec.Body.String())

	ts.do(t, http.MethodPost, "/api/expenses", token, map[string]any{"amount": 80, "category": "Food", "date": "2024-03-02"})
	ts.do(t, http.MethodPost, "/api/expenses", token, map[string]any{"amount": 30, "category": "Fun", "date": "2024-03-03"})
	ts.do(t, http.MethodPost, "/api/incomes", token, map[string]any{"amount": 500, "source": "Salary", "date": "2024-03-01"})

	rec = ts.do(t, http.MethodGet, "/api/summary/monthly", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"month": 3, "year": 2024,
		"totalExpenses": 110, "totalIncome": 500, "netSavings": 390,
		"expensesByCategory": [{"name":"Food","amount":80},{"name":"Fun","amount":30}],
		"incomeBySource": [{"name":"Salary","amount":500}],
		"expenseLimit": 100, "limitExceeded": true
	}`, rec.Body.String())
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "s@example.com")
	for _, date := range []string{"2024-01-10", "2024-02-10", "2024-03-10"} {
		ts.do(t, http.MethodPost, "/api/expenses", token, map[string]any{"amount": 100, "category": "Food", "date": date})
	}

	rec := ts.do(t, http.MethodGet, "/api/expenses/stats?month=3&year=2024&months=3", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out statsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 3, out.Months)
	require.Len(t, out.Categories, 1)
	assert.Equal(t, int64(10000), out.Categories[0].Mean.Cents)
	assert.Zero(t, out.Categories[0].StdDev.Cents)

	rec = ts.do(t, http.MethodGet, "/api/expenses/stats?months=99", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonthlyReportDownload(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "x@example.com")
	ts.do(t, http.MethodPost, "/api/expenses", token, map[string]any{"amount": 12, "category": "Food", "date": "2024-03-02"})

	rec := ts.do(t, http.MethodGet, "/api/reports/monthly.xlsx?month=3&year=2024", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "budgetwise-2024-03.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), export.SheetExpenses)
}

func TestOperationalEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, "Budgetwise API", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/readyz", "", nil).Code)

	ts.deps.Ready = func(context.Context) error { return errors.New("db down") }
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodGet, "/readyz", "", nil).Code)

	rec = ts.do(t, http.MethodGet, "/metrics", "", nil)
	body := rec.Body.String()
	assert.Contains(t, body, "budgetwise_http_requests_total")
	assert.Contains(t, body, `budgetwise_cache_entries{cache="sessions"}`)

	rec = ts.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.Contains(rec.Header().Get("Content-Type"), "application/json"))
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
