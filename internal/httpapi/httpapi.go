// Package httpapi serves the operator console over HTTP.
package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"allinconnect/backoffice/internal/audit"
	"allinconnect/backoffice/internal/dashboard"
	"allinconnect/backoffice/internal/domain"
	"allinconnect/backoffice/internal/gateway"
	"allinconnect/backoffice/internal/session"
)

type API struct {
	ctrl          *dashboard.Controller
	gw            gateway.Set
	sess          *session.Session
	auth          *AuthManager
	journal       audit.Recorder
	allowedOrigin string
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
}

func New(ctrl *dashboard.Controller, gw gateway.Set, sess *session.Session, auth *AuthManager, journal audit.Recorder, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		// Fall back to a deterministic secret if crypto/rand fails (should not happen in practice).
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		ctrl:          ctrl,
		gw:            gw,
		sess:          sess,
		auth:          auth,
		journal:       journal,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

// generateCSRFToken returns a token valid for the current hour bucket.
func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken checks whether the provided token matches the current or
// previous hour bucket, giving a 2-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)
	mux.HandleFunc("/api/v1/auth/logout", a.requireAuth(a.handleLogout))

	mux.HandleFunc("/api/v1/dashboard/overview", a.requireAuth(a.handleOverview))
	mux.HandleFunc("/api/v1/dashboard/tabs/", a.requireAuth(a.handleTab))
	mux.HandleFunc("/api/v1/dashboard/edits/", a.requireAuth(a.handleEditActions))
	mux.HandleFunc("/api/v1/wallet/requests/", a.requireAuth(a.handleWalletRequestActions))
	mux.HandleFunc("/api/v1/plans/", a.requireAuth(a.handlePlanActions))
	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(a.handleAuditLogs))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		next(w, r.WithContext(dashboard.WithActor(r.Context(), actor)))
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	identity, err := a.gw.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}
	if err := a.sess.Login(r.Context(), identity); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// First statistics pull happens here, once the upstream credential is in
	// the session. A failure is not a login failure; the statistics tab
	// reports it on activation.
	if err := a.ctrl.Bootstrap(r.Context()); err != nil {
		log.Printf("[httpapi] WARN: dashboard bootstrap after login failed: %v", err)
	}

	token, expiresAt, err := a.auth.Sign(identity.Email, identity.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	a.recordAudit(r.Context(), identity, "login", "session", "")

	writeJSON(w, http.StatusOK, domain.LoginResponse{
		AccessToken: token,
		Email:       identity.Email,
		Name:        identity.Name,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	identity := a.sess.Identity(r.Context())
	if err := a.sess.Logout(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.recordAudit(r.Context(), identity, "logout", "session", "")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) recordAudit(ctx context.Context, identity domain.Identity, action, entityKind, detail string) {
	if a.journal == nil {
		return
	}
	entry := audit.Entry{
		ActorEmail: identity.Email,
		ActorName:  identity.Name,
		Action:     action,
		EntityKind: entityKind,
		Detail:     detail,
	}
	if err := a.journal.Record(ctx, entry); err != nil {
		log.Printf("[httpapi] WARN: audit record failed action=%s: %v", action, err)
	}
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients must include this token in the X-CSRF-Token header for all mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

// csrfExemptPaths lists paths that are exempt from CSRF validation. Login is
// excluded because it is called without a prior CSRF token fetch.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

// checkCSRF enforces CSRF token validation for state-changing methods.
// Returns false and writes an error response if validation fails.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	if err := a.ctrl.EnsureOverview(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, a.ctrl.Overview())
}

func (a *API) handleTab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/v1/dashboard/tabs/"
	name := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	tab, err := dashboard.ParseTab(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	refresh := strings.EqualFold(r.URL.Query().Get("refresh"), "true")
	if refresh {
		err = a.ctrl.Refresh(r.Context(), tab)
	} else {
		err = a.ctrl.ActivateTab(r.Context(), tab)
	}
	if err != nil {
		// The failure already landed in the tab's error slot; the response
		// below carries it so the console can render the tab-scoped error.
		log.Printf("[httpapi] WARN: tab %s load failed: %v", tab, err)
	}

	loading, loadErr := a.ctrl.Status(tab)
	resp := map[string]any{
		"tab":     tab,
		"loading": loading,
	}
	if loadErr != nil {
		resp["error"] = loadErr.Error()
	}
	resp["data"] = a.tabData(tab, r)
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) tabData(tab dashboard.Tab, r *http.Request) any {
	switch tab {
	case dashboard.TabUsers:
		return map[string]any{
			"users": dashboard.FilterUsers(a.ctrl.Users(), r.URL.Query().Get("type"), r.URL.Query().Get("search")),
		}
	case dashboard.TabOffers:
		return map[string]any{
			"offers": dashboard.FilterOffers(a.ctrl.Offers(), r.URL.Query().Get("search")),
		}
	case dashboard.TabPricing:
		return map[string]any{
			"plans":    a.ctrl.Plans(),
			"payments": a.ctrl.Payments(),
		}
	case dashboard.TabWallet:
		return map[string]any{
			"history":  a.ctrl.WalletHistory(),
			"requests": a.ctrl.WalletRequests(),
		}
	case dashboard.TabStatistics:
		return map[string]any{
			"detailed": a.ctrl.Detailed(),
		}
	}
	return nil
}

type editFieldRequest struct {
	Key    string  `json:"key"`
	Value  any     `json:"value,omitempty"`
	Number *string `json:"number,omitempty"`
	Date   *string `json:"date,omitempty"`
}

func (a *API) handleEditActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/dashboard/edits/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("record kind required"))
		return
	}

	parts := strings.SplitN(tail, "/", 2)
	kind, err := dashboard.ParseRecordKind(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		buf, ok := a.ctrl.EditState(kind)
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"active": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"active": true, "buffer": buf})
		return
	}

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	switch parts[1] {
	case "begin":
		var req struct {
			ID int64 `json:"id"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.ctrl.BeginEdit(kind, req.ID); err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case "create":
		var req struct {
			Defaults domain.FieldPatch `json:"defaults"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.ctrl.BeginCreate(kind, req.Defaults); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case "fields":
		var req editFieldRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if strings.TrimSpace(req.Key) == "" {
			writeError(w, http.StatusBadRequest, errors.New("field key required"))
			return
		}
		switch {
		case req.Number != nil:
			err = a.ctrl.SetEditNumberField(kind, req.Key, *req.Number)
		case req.Date != nil:
			err = a.ctrl.SetEditDateField(kind, req.Key, *req.Date)
		default:
			err = a.ctrl.SetEditField(kind, req.Key, req.Value)
		}
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case "commit":
		if err := a.ctrl.CommitEdit(r.Context(), kind); err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case "cancel":
		a.ctrl.CancelEdit(kind)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown edit action"))
	}
}

func (a *API) handleWalletRequestActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/v1/wallet/requests/"
	if !strings.HasSuffix(r.URL.Path, "/status") {
		writeError(w, http.StatusBadRequest, errors.New("invalid wallet request action path"))
		return
	}
	rawID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix), "/status")
	rawID = strings.TrimSpace(strings.Trim(rawID, "/"))
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, errors.New("wallet request id required"))
		return
	}

	var req struct {
		Status domain.RequestStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.ctrl.TransitionRequest(r.Context(), id, req.Status); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handlePlanActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/v1/plans/"
	rawID := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, errors.New("plan id required"))
		return
	}

	if err := a.ctrl.DeletePlan(r.Context(), id); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	if a.journal == nil {
		writeJSON(w, http.StatusOK, map[string]any{"logs": []audit.Entry{}})
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	logs, err := a.journal.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrSaveInFlight):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrNoActiveEdit):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrUnknownTab):
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Enforce CSRF protection for all state-changing requests.
		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
