package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/gateway/memory"
	"fintrack/internal/store"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	mem := memory.New()
	authSvc := auth.NewService(mem, []byte("0123456789abcdef0123456789abcdef"), time.Hour)
	manager := store.NewManager(mem, nil, nil)
	srv := NewServer(":0", authSvc, manager, Options{
		SummaryCacheTTL:   time.Minute,
		RequestsPerMinute: 10000,
	})
	t.Cleanup(func() { srv.limiter.Stop(); srv.cacheManager.Stop() })
	return srv, mem
}

func doRequest(srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rr, req)
	return rr
}

func registerAndLogin(t *testing.T, srv *Server) string {
	t.Helper()
	creds := `{"email":"test@example.com","password":"secret1"}`
	if rr := doRequest(srv, http.MethodPost, "/api/auth/register", "", creds); rr.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr := doRequest(srv, http.MethodPost, "/api/auth/login", "", creds)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login returned empty token")
	}
	return resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := doRequest(srv, http.MethodGet, path, "", ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	if rr := doRequest(srv, http.MethodGet, "/api/emis", "", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	if rr := doRequest(srv, http.MethodGet, "/api/emis", "not-a-token", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rr.Code)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)
	registerAndLogin(t, srv)

	rr := doRequest(srv, http.MethodPost, "/api/auth/login", "", `{"email":"test@example.com","password":"wrong1"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestEMILifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	body := `{"name":"Home Loan","loanAmount":250000000,"emiAmount":2500000,"dueDate":5,"startDate":"2026-01-01","duration":120,"remainingMonths":112,"interestRate":8.5,"category":"home"}`
	rr := doRequest(srv, http.MethodPost, "/api/emis", token, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add EMI status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created core.EMI
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created EMI: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created EMI has no id")
	}

	rr = doRequest(srv, http.MethodGet, "/api/emis", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list EMIs status=%d", rr.Code)
	}
	var emis []core.EMI
	if err := json.Unmarshal(rr.Body.Bytes(), &emis); err != nil {
		t.Fatalf("decode EMI list: %v", err)
	}
	if len(emis) != 1 || emis[0].Name != "Home Loan" {
		t.Fatalf("unexpected EMI list: %+v", emis)
	}

	rr = doRequest(srv, http.MethodPatch, "/api/emis/"+created.ID, token, `{"name":"House Loan"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update EMI status=%d body=%s", rr.Code, rr.Body.String())
	}
	var updated core.EMI
	if err := json.Unmarshal(rr.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode updated EMI: %v", err)
	}
	if updated.Name != "House Loan" || updated.DueDay != 5 {
		t.Fatalf("patch did not apply sparsely: %+v", updated)
	}

	if rr := doRequest(srv, http.MethodDelete, "/api/emis/"+created.ID, token, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete EMI status=%d", rr.Code)
	}
	rr = doRequest(srv, http.MethodGet, "/api/emis", token, "")
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Fatalf("expected empty list after delete, got %s", body)
	}
}

func TestAddEMIDerivesRemainingMonths(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	// Start date far in the past with the full duration claimed remaining:
	// the server must recompute from startDate and duration, not trust the
	// client.
	body := `{"name":"Old Loan","loanAmount":10000000,"emiAmount":500000,"dueDate":7,"startDate":"2020-01-07","duration":60,"remainingMonths":60,"category":"personal"}`
	rr := doRequest(srv, http.MethodPost, "/api/emis", token, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add EMI status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created core.EMI
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created EMI: %v", err)
	}
	want := core.RemainingMonths(core.EMI{StartDate: core.NewDate(2020, 1, 7), Duration: 60}, time.Now())
	if created.RemainingMonths != want {
		t.Fatalf("remaining months = %d, want %d", created.RemainingMonths, want)
	}
	if created.RemainingMonths == 60 {
		t.Fatal("client-supplied remaining months was persisted verbatim")
	}

	// The derived value is what the gateway stored.
	rr = doRequest(srv, http.MethodGet, "/api/emis", token, "")
	var emis []core.EMI
	if err := json.Unmarshal(rr.Body.Bytes(), &emis); err != nil {
		t.Fatalf("decode EMI list: %v", err)
	}
	if len(emis) != 1 || emis[0].RemainingMonths != want {
		t.Fatalf("stored remaining months = %+v, want %d", emis, want)
	}
}

func TestEMIResponsesCarryNextDueDate(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)
	started := time.Now()

	body := `{"name":"Car Loan","loanAmount":80000000,"emiAmount":1500000,"dueDate":15,"startDate":"2026-02-01","duration":60,"category":"car"}`
	rr := doRequest(srv, http.MethodPost, "/api/emis", token, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add EMI status=%d body=%s", rr.Code, rr.Body.String())
	}

	type emiWithDue struct {
		core.EMI
		NextDueDate core.Date `json:"nextDueDate"`
	}
	var created emiWithDue
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created EMI: %v", err)
	}
	if created.NextDueDate.IsZero() {
		t.Fatal("create response missing nextDueDate")
	}

	rr = doRequest(srv, http.MethodGet, "/api/emis", token, "")
	var listed []emiWithDue
	if err := json.Unmarshal(rr.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode EMI list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("EMI list length = %d", len(listed))
	}
	due := listed[0].NextDueDate
	if due.Day() != 15 {
		t.Fatalf("next due day = %d, want 15", due.Day())
	}
	if !due.After(started.Add(-24 * time.Hour)) {
		t.Fatalf("next due date %v is not upcoming", due)
	}
}

func TestAddTransactionAcceptsDecimalAmount(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	month := time.Now().Format("2006-01")
	body := `{"amount":"99.99","type":"expense","category":"Food","description":"dinner","date":"` + month + `-04"}`
	rr := doRequest(srv, http.MethodPost, "/api/transactions", token, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add transaction status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created core.Transaction
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created transaction: %v", err)
	}
	if created.Amount.Cents != 9999 {
		t.Fatalf("amount = %d cents, want 9999", created.Amount.Cents)
	}
}

func TestAddEMIRejectsInvalid(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	body := `{"name":"","loanAmount":1000,"emiAmount":100,"dueDate":5,"startDate":"2026-01-01","duration":12,"category":"home"}`
	if rr := doRequest(srv, http.MethodPost, "/api/emis", token, body); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty name, got %d", rr.Code)
	}
}

func TestUpdateMissingEMIReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	rr := doRequest(srv, http.MethodPatch, "/api/emis/no-such-id", token, `{"name":"x"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestTransactionAndSummaryFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	if rr := doRequest(srv, http.MethodPut, "/api/budget", token, `{"income":5000000}`); rr.Code != http.StatusOK {
		t.Fatalf("update budget status=%d body=%s", rr.Code, rr.Body.String())
	}

	month := time.Now().Format("2006-01")
	income := `{"amount":1500000,"type":"income","category":"Salary","description":"salary","date":"` + month + `-01"}`
	expense := `{"amount":5000000,"type":"expense","category":"Rent","description":"rent","date":"` + month + `-02"}`
	for _, body := range []string{income, expense} {
		if rr := doRequest(srv, http.MethodPost, "/api/transactions", token, body); rr.Code != http.StatusCreated {
			t.Fatalf("add transaction status=%d body=%s", rr.Code, rr.Body.String())
		}
	}

	rr := doRequest(srv, http.MethodGet, "/api/summary", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	var summary core.FinancialSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	// Total income = fixed monthly income + income transactions.
	if summary.TotalIncome.Cents != 5000000+1500000 {
		t.Errorf("total income = %d, want %d", summary.TotalIncome.Cents, 5000000+1500000)
	}
	if summary.TotalExpenses.Cents != 5000000 {
		t.Errorf("total expenses = %d, want 5000000", summary.TotalExpenses.Cents)
	}
}

func TestSummaryCacheInvalidatedByMutation(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	rr := doRequest(srv, http.MethodGet, "/api/summary", token, "")
	var before core.FinancialSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &before); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if before.TotalIncome.Cents != 0 {
		t.Fatalf("expected zero income before budget, got %d", before.TotalIncome.Cents)
	}

	if rr := doRequest(srv, http.MethodPut, "/api/budget", token, `{"income":7000000}`); rr.Code != http.StatusOK {
		t.Fatalf("update budget status=%d", rr.Code)
	}

	rr = doRequest(srv, http.MethodGet, "/api/summary", token, "")
	var after core.FinancialSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if after.TotalIncome.Cents != 7000000 {
		t.Errorf("summary not recomputed after budget change: income = %d", after.TotalIncome.Cents)
	}
}

func TestExportDownload(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	month := time.Now().Format("2006-01")
	body := `{"amount":1000,"type":"expense","category":"Food","description":"lunch","date":"` + month + `-03"}`
	if rr := doRequest(srv, http.MethodPost, "/api/transactions", token, body); rr.Code != http.StatusCreated {
		t.Fatalf("add transaction status=%d", rr.Code)
	}

	rr := doRequest(srv, http.MethodGet, "/api/export", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "finance-data.json") {
		t.Errorf("unexpected content disposition %q", cd)
	}

	var snapshot store.ExportSnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(snapshot.Transactions) != 1 {
		t.Fatalf("export transactions = %d, want 1", len(snapshot.Transactions))
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAndLogin(t, srv)

	month := time.Now().Format("2006-01")
	body := `{"amount":1000,"type":"expense","category":"Food","description":"lunch","date":"` + month + `-03"}`
	if rr := doRequest(srv, http.MethodPost, "/api/transactions", token, body); rr.Code != http.StatusCreated {
		t.Fatalf("add transaction status=%d", rr.Code)
	}

	if rr := doRequest(srv, http.MethodPost, "/api/auth/logout", token, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("logout status=%d", rr.Code)
	}

	// The token is still valid; a new request builds a fresh session store
	// that reloads from the gateway.
	rr := doRequest(srv, http.MethodGet, "/api/transactions", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list after logout status=%d", rr.Code)
	}
	var txns []core.Transaction
	if err := json.Unmarshal(rr.Body.Bytes(), &txns); err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("reloaded transactions = %d, want 1", len(txns))
	}
}

func TestGatewayFailureSurfacesFixedMessage(t *testing.T) {
	srv, mem := newTestServer(t)
	token := registerAndLogin(t, srv)

	mem.FailWith("CreateEMI", assertError("boom"))
	body := `{"name":"Car Loan","loanAmount":80000000,"emiAmount":1500000,"dueDate":10,"startDate":"2026-02-01","duration":60,"remainingMonths":60,"category":"car"}`
	rr := doRequest(srv, http.MethodPost, "/api/emis", token, body)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Failed to add EMI") {
		t.Fatalf("expected fixed message, got %s", rr.Body.String())
	}
}

type assertError string

func (e assertError) Error() string { return string(e) }
