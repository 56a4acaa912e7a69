package broker

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dohyunpark/autotrader/internal/domain"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestLiveGetCashFetchesTokenThenBalance(t *testing.T) {
	var authCalls, balanceCalls int
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			authCalls++
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
		case "/users/1/balance":
			balanceCalls++
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("expected bearer token header, got %q", r.Header.Get("Authorization"))
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"cash": 500000.0})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	live := NewLive(srv.URL, "key", "secret", zerolog.Nop())
	defer live.Close()

	cash, err := live.GetCash(1)
	if err != nil {
		t.Fatalf("GetCash: %v", err)
	}
	if cash != 500000.0 {
		t.Fatalf("expected cash 500000, got %v", cash)
	}
	if authCalls != 1 || balanceCalls != 1 {
		t.Fatalf("expected exactly one auth call and one balance call, got %d/%d", authCalls, balanceCalls)
	}

	// A second call within the token's lifetime must not re-authenticate.
	if _, err := live.GetCash(1); err != nil {
		t.Fatalf("GetCash (second call): %v", err)
	}
	if authCalls != 1 {
		t.Fatalf("expected token to be reused, got %d auth calls", authCalls)
	}
}

func TestLiveBuyReturnsOrderRejectedError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/token":
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
		case r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]interface{}{"order_id": "X1", "rejected": true, "reason": "limit exceeded"})
		}
	})

	live := NewLive(srv.URL, "key", "secret", zerolog.Nop())
	defer live.Close()

	ok, orderID, detail, err := live.Buy(1, "005930", 10, 10000)
	if ok {
		t.Fatalf("expected rejected order to report ok=false")
	}
	if err != domain.ErrOrderRejected {
		t.Fatalf("expected ErrOrderRejected, got %v", err)
	}
	if orderID != "X1" || detail != "limit exceeded" {
		t.Fatalf("expected order id/detail to be passed through, got %q/%q", orderID, detail)
	}
}

func TestLiveRequestClassifiesServerErrorAsTransient(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token" {
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("down for maintenance"))
	})

	live := NewLive(srv.URL, "key", "secret", zerolog.Nop())
	defer live.Close()

	_, err := live.GetCash(1)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !isTransient(err) {
		t.Fatalf("expected a transient broker error, got %v", err)
	}
}

func TestLiveRequestClassifiesAuthFailureAsPermanent(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token" {
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
			return
		}
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("forbidden"))
	})

	live := NewLive(srv.URL, "key", "secret", zerolog.Nop())
	defer live.Close()

	_, err := live.GetCash(1)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if isTransient(err) {
		t.Fatalf("expected a permanent broker error, got %v", err)
	}
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrBrokerTransient)
}
