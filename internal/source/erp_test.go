package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"retail-sync/inventory-sync/internal/config"
	"retail-sync/inventory-sync/internal/model"
)

func newTestERP(t *testing.T, cfg config.ERPConfig) *ERP {
	t.Helper()
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if len(cfg.AuthOrder) == 0 {
		cfg.AuthOrder = config.DefaultAuthOrder
	}
	if cfg.Username == "" {
		cfg.Username = "user"
		cfg.Password = "secret"
	}
	e, err := NewERP(cfg, config.FilterConfig{})
	if err != nil {
		t.Fatalf("NewERP: %v", err)
	}
	return e
}

func TestLoginCookieOnRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1"})
		w.Header().Set("Location", "/home")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	e := newTestERP(t, config.ERPConfig{LoginURL: srv.URL + "/login", DataURL: srv.URL + "/data"})
	res, err := e.login(context.Background())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Mode != model.AuthCookie {
		t.Errorf("mode: got %s, want cookie", res.Mode)
	}
	if res.Token != "" {
		t.Errorf("token should be empty in cookie mode, got %q", res.Token)
	}
}

func TestLoginTokenFromJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "abc"})
	}))
	defer srv.Close()

	e := newTestERP(t, config.ERPConfig{LoginURL: srv.URL + "/login", DataURL: srv.URL + "/data"})
	res, err := e.login(context.Background())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Mode != model.AuthToken || res.Token != "abc" {
		t.Errorf("got mode=%s token=%q, want token/abc", res.Mode, res.Token)
	}
}

func TestLoginCookieOn204(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "x"})
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	e := newTestERP(t, config.ERPConfig{LoginURL: srv.URL + "/login", DataURL: srv.URL + "/data"})
	res, err := e.login(context.Background())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Mode != model.AuthCookie {
		t.Errorf("mode: got %s, want cookie", res.Mode)
	}
}

func TestLoginExhaustedCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad credentials"}`))
	}))
	defer srv.Close()

	e := newTestERP(t, config.ERPConfig{LoginURL: srv.URL + "/login", DataURL: srv.URL + "/data"})
	_, err := e.login(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("got %v, want ErrAuthFailed", err)
	}
	if got := err.Error(); !strings.Contains(got, "401") || !strings.Contains(got, "bad credentials") {
		t.Errorf("error should carry last status and body snippet: %q", got)
	}
}

func TestLoginBasicProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, p, ok := r.BasicAuth(); !ok || u != "user" || p != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rows":[{"Referencia":"SKU1"}]}`))
	}))
	defer srv.Close()

	e := newTestERP(t, config.ERPConfig{
		LoginURL:  srv.URL + "/login",
		DataURL:   srv.URL + "/data",
		AuthOrder: []string{"basic"},
	})
	rows, err := e.InventoryRows(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
}

func TestFormLoginStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("username") != "user" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token": "form-token"})
	}))
	defer srv.Close()

	e := newTestERP(t, config.ERPConfig{
		LoginURL:  srv.URL + "/login",
		DataURL:   srv.URL + "/data",
		AuthOrder: []string{"form"},
	})
	res, err := e.login(context.Background())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Mode != model.AuthToken || res.Token != "form-token" {
		t.Errorf("got mode=%s token=%q", res.Mode, res.Token)
	}
}

func TestFetchSendsBearerAndCachesPayload(t *testing.T) {
	dataCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "abc"})
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		dataCalls++
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rows":[{"Referencia":"SKU1"},{"Referencia":"SKU2"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := newTestERP(t, config.ERPConfig{LoginURL: srv.URL + "/login", DataURL: srv.URL + "/data"})

	inv, err := e.InventoryRows(context.Background())
	if err != nil {
		t.Fatalf("InventoryRows: %v", err)
	}
	cat, err := e.CatalogRows(context.Background())
	if err != nil {
		t.Fatalf("CatalogRows: %v", err)
	}
	if len(inv) != 2 || len(cat) != 2 {
		t.Errorf("got %d inventory rows and %d catalog rows, want 2 and 2", len(inv), len(cat))
	}
	if dataCalls != 1 {
		t.Errorf("data endpoint hit %d times, want 1 (payload cached)", dataCalls)
	}
}

func TestFetchRedirectMeansSessionInvalid(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "abc"})
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/login")
		w.WriteHeader(http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := newTestERP(t, config.ERPConfig{LoginURL: srv.URL + "/login", DataURL: srv.URL + "/data"})
	if _, err := e.InventoryRows(context.Background()); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("got %v, want ErrSessionInvalid", err)
	}
}

func TestFetchRejectsNonJSON(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "abc"})
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>login page</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := newTestERP(t, config.ERPConfig{LoginURL: srv.URL + "/login", DataURL: srv.URL + "/data"})
	if _, err := e.InventoryRows(context.Background()); !errors.Is(err, ErrUnexpectedResponse) {
		t.Fatalf("got %v, want ErrUnexpectedResponse", err)
	}
}

func TestFetchRejectsWrongRowsShape(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "abc"})
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"rows":{"Referencia":"SKU1"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := newTestERP(t, config.ERPConfig{LoginURL: srv.URL + "/login", DataURL: srv.URL + "/data"})
	if _, err := e.InventoryRows(context.Background()); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("got %v, want ErrMalformedPayload", err)
	}
}
