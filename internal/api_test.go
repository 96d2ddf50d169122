package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestHTTPProvider(t *testing.T, handler http.HandlerFunc) *HTTPProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("MONEYLINE_TEST_TOKEN", "secret")
	t.Setenv("MONEYLINE_TEST_APP_TOKEN", "app-secret")
	p, err := NewHTTPProvider(APIConfig{
		Provider:    "http",
		BaseURL:     srv.URL + "/",
		TokenEnv:    "MONEYLINE_TEST_TOKEN",
		AppTokenEnv: "MONEYLINE_TEST_APP_TOKEN",
		Timeout:     5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewHTTPProvider: %v", err)
	}
	return p
}

func TestNewHTTPProviderRequiresToken(t *testing.T) {
	t.Setenv("MONEYLINE_TEST_TOKEN", "")
	_, err := NewHTTPProvider(APIConfig{BaseURL: "https://api.example", TokenEnv: "MONEYLINE_TEST_TOKEN"}, nil)
	if !errors.Is(err, ErrMissingToken) {
		t.Errorf("err = %v, want ErrMissingToken", err)
	}

	if _, err := NewHTTPProvider(APIConfig{TokenEnv: "MONEYLINE_TEST_TOKEN"}, nil); err == nil {
		t.Error("expected error without base_url")
	}
}

func TestHTTPProviderFetchAccounts(t *testing.T) {
	p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("X-App-Token"); got != "app-secret" {
			t.Errorf("X-App-Token = %q", got)
		}
		w.Write([]byte(`{"items": [
			{"id": "acc_1", "name": "Everyday", "type": "checking", "currency": "NZD",
			 "balance": {"current": "1520.35", "available": 1500}}
		]}`))
	})

	accounts, err := p.FetchAccounts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 || accounts[0].Name != "Everyday" {
		t.Fatalf("accounts = %+v", accounts)
	}
	if !accounts[0].Balance.Current.Equal(decimal.RequireFromString("1520.35")) {
		t.Errorf("current = %s", accounts[0].Balance.Current)
	}
	if accounts[0].Balance.Available == nil || !accounts[0].Balance.Available.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("available = %v", accounts[0].Balance.Available)
	}
}

func TestHTTPProviderFetchTransactionsFollowsCursor(t *testing.T) {
	pages := map[string]string{
		"":   `{"items": [{"id": "t1", "account_id": "a", "date": "2025-01-02T00:00:00Z", "description": "one", "amount": -1}], "cursor": {"next": "p2"}}`,
		"p2": `{"items": [{"id": "t2", "account_id": "a", "date": "2025-01-03T00:00:00Z", "description": "two", "amount": -2}], "cursor": {"next": "p3"}}`,
		"p3": `{"items": [], "cursor": {"next": ""}}`,
	}
	var cursors []string
	p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("start") != "2025-01-01" || q.Get("end") != "2025-01-31" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		cursor := q.Get("cursor")
		cursors = append(cursors, cursor)
		w.Write([]byte(pages[cursor]))
	})

	txs, err := p.FetchTransactions(context.Background(), day("2025-01-01"), day("2025-01-31"))
	if err != nil {
		t.Fatal(err)
	}
	if ids(txs) != "t1t2" {
		t.Errorf("ids = %s, want t1t2", ids(txs))
	}
	if len(cursors) != 3 {
		t.Errorf("requests = %v, want 3", cursors)
	}
}

func TestHTTPProviderStopsOnRepeatedCursor(t *testing.T) {
	calls := 0
	p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"items": [], "cursor": {"next": "same"}}`))
	})
	if _, err := p.FetchTransactions(context.Background(), day("2025-01-01"), day("2025-01-31")); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestHTTPProviderErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		kind      ErrorKind
		retryable bool
		message   string
	}{
		{"rate limited", 429, `{"message": "slow down"}`, KindHTTP, true, "slow down"},
		{"server error", 500, ``, KindHTTP, true, ""},
		{"unavailable", 503, `<html>down</html>`, KindHTTP, true, ""},
		{"not found", 404, `{"error": "no such account"}`, KindHTTP, false, "no such account"},
		{"unauthorized", 401, `{"message": "bad token"}`, KindHTTP, false, "bad token"},
		{"bad json", 200, `{"items": [`, KindDecode, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := p.FetchAccounts(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", apiErr.Kind, tt.kind)
			}
			if tt.kind == KindHTTP && apiErr.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.message {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.message)
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("retryable = %v, want %v", IsRetryable(err), tt.retryable)
			}
		})
	}
}

func TestHTTPProviderConnectionRefused(t *testing.T) {
	// grab a free port and close it so nothing is listening
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	t.Setenv("MONEYLINE_TEST_TOKEN", "secret")
	p, err := NewHTTPProvider(APIConfig{BaseURL: "http://" + addr, TokenEnv: "MONEYLINE_TEST_TOKEN"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.FetchAccounts(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindTransport {
		t.Fatalf("err = %v, want transport error", err)
	}
	if apiErr.TransportCode != TransportConnRefused {
		t.Errorf("code = %q, want ECONNREFUSED", apiErr.TransportCode)
	}
	if !IsRetryable(err) {
		t.Error("connection refused should be retryable")
	}
}

func TestHTTPProviderCancelledIsTerminal(t *testing.T) {
	p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": []}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.FetchAccounts(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRetryable(err) {
		t.Errorf("cancelled request should not be retried: %v", err)
	}
}

func TestHTTPProviderInitiateTransfer(t *testing.T) {
	var keys []string
	var got TransferRequest
	p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transfers" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "tr_1", "status": "pending", "created_at": "2025-03-20T10:00:00Z"}`))
	})

	req := TransferRequest{FromAccountID: "a", ToAccountID: "b", Amount: decimal.RequireFromString("25.50"), Reference: "rent"}
	for i := 0; i < 2; i++ {
		receipt, err := p.InitiateTransfer(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if receipt.ID != "tr_1" || receipt.Status != "pending" {
			t.Errorf("receipt = %+v", receipt)
		}
	}
	if got.FromAccountID != "a" || got.ToAccountID != "b" || !got.Amount.Equal(req.Amount) {
		t.Errorf("body = %+v", got)
	}
	if len(keys) != 2 || keys[0] == "" || keys[0] == keys[1] {
		t.Errorf("idempotency keys = %v, want two distinct keys", keys)
	}
}

func TestHTTPProviderTransferNotRetriedByCache(t *testing.T) {
	calls := 0
	p := newTestHTTPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := p.InitiateTransfer(context.Background(), TransferRequest{FromAccountID: "a", ToAccountID: "b", Amount: decimal.NewFromInt(1)})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want exactly 1", calls)
	}
}
