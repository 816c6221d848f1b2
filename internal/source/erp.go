package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"retail-sync/inventory-sync/internal/config"
	"retail-sync/inventory-sync/internal/metrics"
	"retail-sync/inventory-sync/internal/model"
	"retail-sync/inventory-sync/internal/util"
)

// The ERP's login contract is not known ahead of time: deployments have been
// seen accepting a JSON body (under several field spellings), a form post, or
// plain Basic auth on the data endpoint. Each configured strategy is tried
// once, in order, against a session that keeps any cookies the server sets.

type credentialPair struct {
	userKey string
	passKey string
}

var credentialPairs = []credentialPair{
	{"username", "password"},
	{"user", "pass"},
	{"Usuario", "Clave"},
	{"usuario", "contrasena"},
	{"email", "password"},
}

var tokenKeys = []string{"access_token", "token", "jwt"}

type ERP struct {
	cfg     config.ERPConfig
	filters config.FilterConfig
	client  *http.Client

	// The one payload serves both inventory and catalog rows.
	rows    []model.SourceRow
	fetched bool
}

func NewERP(cfg config.ERPConfig, filters config.FilterConfig) (*ERP, error) {
	client, err := util.NewSessionClient(cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &ERP{cfg: cfg, filters: filters, client: client}, nil
}

func (e *ERP) Name() string { return "erp" }

func (e *ERP) InventoryRows(ctx context.Context) ([]model.SourceRow, error) {
	return e.fetch(ctx)
}

func (e *ERP) CatalogRows(ctx context.Context) ([]model.SourceRow, error) {
	return e.fetch(ctx)
}

// attemptInfo keeps the last indecisive response for the terminal error.
type attemptInfo struct {
	status      int
	contentType string
	body        string
}

func (e *ERP) login(ctx context.Context) (model.AuthResult, error) {
	var last *attemptInfo
	for _, strat := range e.cfg.AuthOrder {
		switch strat {
		case "json":
			for _, pair := range credentialPairs {
				body, _ := json.Marshal(map[string]string{
					pair.userKey: e.cfg.Username,
					pair.passKey: e.cfg.Password,
				})
				res, info := e.postLogin(ctx, "application/json", bytes.NewReader(body))
				metrics.Inc("auth_attempts_total", map[string]string{"strategy": "json"}, 1)
				if info != nil {
					last = info
				}
				if res != nil {
					return *res, nil
				}
			}
		case "form":
			form := url.Values{"username": {e.cfg.Username}, "password": {e.cfg.Password}}
			res, info := e.postLogin(ctx, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
			metrics.Inc("auth_attempts_total", map[string]string{"strategy": "form"}, 1)
			if info != nil {
				last = info
			}
			if res != nil {
				return *res, nil
			}
		case "basic":
			res, info := e.probeBasic(ctx)
			metrics.Inc("auth_attempts_total", map[string]string{"strategy": "basic"}, 1)
			if info != nil {
				last = info
			}
			if res != nil {
				return *res, nil
			}
		default:
			log.Printf("erp: unknown auth strategy %q, skipping", strat)
		}
	}
	if last != nil {
		return model.AuthResult{}, fmt.Errorf("%w: last status=%d content-type=%q body=%q",
			ErrAuthFailed, last.status, last.contentType, last.body)
	}
	return model.AuthResult{}, ErrAuthFailed
}

// postLogin issues one login attempt and classifies the response. A decisive
// outcome returns a result; anything else (including a transport error) is
// recorded and the caller moves on to the next candidate.
func (e *ERP) postLogin(ctx context.Context, contentType string, body io.Reader) (*model.AuthResult, *attemptInfo) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.LoginURL, body)
	if err != nil {
		return nil, &attemptInfo{body: err.Error()}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		log.Printf("erp: login attempt failed: %v", err)
		return nil, &attemptInfo{body: err.Error()}
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	if res := classify(resp, raw); res != nil {
		return res, nil
	}
	return nil, &attemptInfo{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        snippet(raw),
	}
}

// probeBasic skips the login endpoint and checks whether the data endpoint
// accepts Basic credentials directly.
func (e *ERP) probeBasic(ctx context.Context) (*model.AuthResult, *attemptInfo) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.DataURL, nil)
	if err != nil {
		return nil, &attemptInfo{body: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(e.cfg.Username, e.cfg.Password)

	resp, err := e.client.Do(req)
	if err != nil {
		log.Printf("erp: basic auth probe failed: %v", err)
		return nil, &attemptInfo{body: err.Error()}
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if resp.StatusCode == http.StatusOK && strings.Contains(ct, "application/json") {
		return &model.AuthResult{Mode: model.AuthBasic}, nil
	}
	return nil, &attemptInfo{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        snippet(raw),
	}
}

// classify decides whether a login response established a session.
// Redirects mean the server set a cookie and is bouncing us onward; a JSON
// 200 may carry a token under a few conventional keys; a 204 with Set-Cookie
// is a cookie login with an empty body.
func classify(resp *http.Response, body []byte) *model.AuthResult {
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return &model.AuthResult{Mode: model.AuthCookie}
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if resp.StatusCode == http.StatusOK && strings.Contains(ct, "application/json") {
		var data map[string]any
		if err := json.Unmarshal(body, &data); err == nil {
			for _, k := range tokenKeys {
				if s, ok := data[k].(string); ok && s != "" {
					return &model.AuthResult{Mode: model.AuthToken, Token: s}
				}
			}
		}
		if resp.Header.Get("Set-Cookie") != "" {
			return &model.AuthResult{Mode: model.AuthCookie}
		}
	}
	if resp.StatusCode == http.StatusNoContent && resp.Header.Get("Set-Cookie") != "" {
		return &model.AuthResult{Mode: model.AuthCookie}
	}
	return nil
}

func (e *ERP) fetch(ctx context.Context) ([]model.SourceRow, error) {
	if e.fetched {
		return e.rows, nil
	}

	auth, err := e.login(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("erp: login ok, mode=%s", auth.Mode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.DataURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	switch auth.Mode {
	case model.AuthToken:
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case model.AuthBasic:
		req.SetBasicAuth(e.cfg.Username, e.cfg.Password)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSourceUnavailable, err)
	}

	log.Printf("erp: data status=%d content-type=%q", resp.StatusCode, resp.Header.Get("Content-Type"))

	// A redirect here means the session was never actually accepted.
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return nil, fmt.Errorf("%w: redirected to %q", ErrSessionInvalid, resp.Header.Get("Location"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status=%d content-type=%q body=%q",
			ErrUnexpectedResponse, resp.StatusCode, resp.Header.Get("Content-Type"), snippet(raw))
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		return nil, fmt.Errorf("%w: want JSON, got content-type=%q body=%q",
			ErrUnexpectedResponse, resp.Header.Get("Content-Type"), snippet(raw))
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	field, ok := payload["rows"]
	if !ok {
		return nil, fmt.Errorf("%w: payload has no rows field", ErrMalformedPayload)
	}
	arr, ok := field.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: rows is not an array", ErrMalformedPayload)
	}

	rows := make([]model.SourceRow, 0, len(arr))
	for _, it := range arr {
		if m, ok := it.(map[string]any); ok {
			rows = append(rows, m)
		}
	}
	if e.filters.Limit > 0 && len(rows) > e.filters.Limit {
		rows = rows[:e.filters.Limit]
	}

	metrics.Inc("rows_fetched_total", map[string]string{"source": e.Name()}, float64(len(rows)))
	log.Printf("erp: received %d rows", len(rows))

	e.rows, e.fetched = rows, true
	return rows, nil
}
