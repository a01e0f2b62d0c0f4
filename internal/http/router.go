package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PythonTilk/Notes/internal/domain"
	"github.com/PythonTilk/Notes/internal/service/account"
	"github.com/PythonTilk/Notes/internal/service/banlist"
	"github.com/PythonTilk/Notes/internal/service/note"
	"github.com/PythonTilk/Notes/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	accounts *account.Service
	notes    *note.Service
	bans     *banlist.Service
	hub      *ws.Hub
	upgrader websocket.Upgrader
	limiter  RateLimiter
	dbHealth func(context.Context) error
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitRegister  = 5
	rateLimitLogin     = 12
	rateLimitTokenOps  = 10
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, accounts *account.Service, notes *note.Service, bans *banlist.Service, hub *ws.Hub, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		accounts: accounts,
		notes:    notes,
		bans:     bans,
		hub:      hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	setupMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())

	r.mux.HandleFunc("/auth/register", r.audit(r.withRateLimit("register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/auth/login", r.audit(r.withRateLimit("login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/auth/verify-email", r.audit(r.withRateLimit("verify", rateLimitTokenOps, rateWindowDefault, rateLimitKeyIP, r.handleVerifyEmail)))
	r.mux.HandleFunc("/auth/resend-verification", r.audit(r.withRateLimit("resend", rateLimitTokenOps, rateWindowDefault, rateLimitKeyIP, r.handleResendVerification)))
	r.mux.HandleFunc("/auth/forgot-password", r.audit(r.withRateLimit("forgot", rateLimitTokenOps, rateWindowDefault, rateLimitKeyIP, r.handleForgotPassword)))
	r.mux.HandleFunc("/auth/reset-password", r.audit(r.withRateLimit("reset", rateLimitTokenOps, rateWindowDefault, rateLimitKeyIP, r.handleResetPassword)))

	r.mux.HandleFunc("/notes", r.audit(r.handlerAuthRate("notes", rateLimitUserWrite, rateWindowDefault, r.handleNotes)))
	r.mux.HandleFunc("/notes/search", r.audit(r.handlerAuthRate("notes_search", rateLimitUserRead, rateWindowDefault, r.handleNoteSearch)))
	r.mux.HandleFunc("/notes/", r.audit(r.handlerAuthRate("note", rateLimitUserWrite, rateWindowDefault, r.handleNoteSubroutes)))

	r.mux.HandleFunc("/users/search", r.audit(r.handlerAuthRate("users_search", rateLimitUserRead, rateWindowDefault, r.handleUserSearch)))
	r.mux.HandleFunc("/profile", r.audit(r.handlerAuthRate("profile", rateLimitUserWrite, rateWindowDefault, r.handleOwnProfile)))
	r.mux.HandleFunc("/profile/", r.audit(r.handlerAuthRate("profile_view", rateLimitUserRead, rateWindowDefault, r.handlePublicProfile)))

	r.mux.HandleFunc("/admin/users", r.audit(r.requireAdmin(r.handleAdminUsers)))
	r.mux.HandleFunc("/admin/users/", r.audit(r.requireAdmin(r.handleAdminUserActions)))
	r.mux.HandleFunc("/admin/admins", r.audit(r.requireAdmin(r.handleAdminList)))
	r.mux.HandleFunc("/admin/banned-emails", r.audit(r.requireAdmin(r.handleBannedEmails)))
	r.mux.HandleFunc("/admin/banned-emails/", r.audit(r.requireAdmin(r.handleBannedEmailDelete)))

	r.mux.HandleFunc("/ws/board", r.audit(r.handlerAuthRate("ws_board", rateLimitWebsocket, rateWindowRealtime, r.handleBoardWS)))
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
	defer cancel()
	if r.dbHealth != nil {
		if err := r.dbHealth(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := r.accounts.Register(req.Context(), payload.Username, payload.Password, payload.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": toUserView(user)})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := r.accounts.Login(req.Context(), payload.Username, payload.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserView(user), "token": token})
}

func (r *Router) handleVerifyEmail(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	token := strings.TrimSpace(req.URL.Query().Get("token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	ok, err := r.accounts.VerifyEmail(req.Context(), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeDomainError(w, domain.ErrTokenInvalid)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (r *Router) handleResendVerification(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sent, err := r.accounts.ResendVerification(req.Context(), payload.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"sent": sent})
}

func (r *Router) handleForgotPassword(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sent, err := r.accounts.RequestPasswordReset(req.Context(), payload.Email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"sent": sent})
}

func (r *Router) handleResetPassword(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Token           string `json:"token"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Password != payload.ConfirmPassword {
		writeDomainError(w, fmt.Errorf("%w: password confirmation does not match", domain.ErrValidation))
		return
	}
	ok, err := r.accounts.ResetPassword(req.Context(), payload.Token, payload.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeDomainError(w, domain.ErrTokenInvalid)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

func (r *Router) handleNotes(w http.ResponseWriter, req *http.Request) {
	who, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	switch req.Method {
	case http.MethodGet:
		notes, err := r.notes.ListVisible(req.Context(), who)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toNoteViews(notes))
	case http.MethodPost:
		var payload note.CreateInput
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := r.notes.Create(req.Context(), who, payload)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toNoteView(*created))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleNoteSearch(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	who, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	notes, err := r.notes.Search(req.Context(), who, req.URL.Query().Get("q"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteViews(notes))
}

func (r *Router) handleNoteSubroutes(w http.ResponseWriter, req *http.Request) {
	who, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	trimmed := strings.TrimPrefix(req.URL.Path, "/notes/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 1 || parts[0] == "" {
		r.notFound(w)
		return
	}
	noteID := parts[0]

	if len(parts) == 2 && parts[1] == "position" {
		r.handleNoteMove(w, req, who, noteID)
		return
	}
	if len(parts) != 1 {
		r.notFound(w)
		return
	}

	switch req.Method {
	case http.MethodGet:
		n, err := r.notes.Get(req.Context(), who, noteID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toNoteView(*n))
	case http.MethodPatch, http.MethodPut:
		var payload note.UpdateInput
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := r.notes.Update(req.Context(), who, noteID, payload)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toNoteView(*updated))
	case http.MethodDelete:
		if err := r.notes.Delete(req.Context(), who, noteID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleNoteMove(w http.ResponseWriter, req *http.Request, who domain.Identity, noteID string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	moved, err := r.notes.Move(req.Context(), who, noteID, payload.X, payload.Y)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNoteView(*moved))
}

func (r *Router) handleUserSearch(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	who, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	users, err := r.accounts.SearchUsers(req.Context(), req.URL.Query().Get("q"), who.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]profileView, 0, len(users))
	for i := range users {
		views = append(views, toProfileView(&users[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (r *Router) handleOwnProfile(w http.ResponseWriter, req *http.Request) {
	who, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	switch req.Method {
	case http.MethodGet:
		user, err := r.accounts.GetByID(req.Context(), who.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserView(user))
	case http.MethodPatch, http.MethodPut:
		var payload account.ProfileUpdate
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		user, err := r.accounts.UpdateProfile(req.Context(), who.UserID, payload)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserView(user))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handlePublicProfile(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	userID := strings.TrimPrefix(req.URL.Path, "/profile/")
	if userID == "" || strings.Contains(userID, "/") {
		r.notFound(w)
		return
	}
	user, err := r.accounts.GetByID(req.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	notes, err := r.notes.ListPublicByOwner(req.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profile": toProfileView(user),
		"notes":   toNoteViews(notes),
	})
}

func (r *Router) handleAdminUsers(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	users, err := r.accounts.ListUsers(req.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, toUserView(&users[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (r *Router) handleAdminList(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	admins, err := r.accounts.ListAdmins(req.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]userView, 0, len(admins))
	for i := range admins {
		views = append(views, toUserView(&admins[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (r *Router) handleAdminUserActions(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	who, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	trimmed := strings.TrimPrefix(req.URL.Path, "/admin/users/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" {
		r.notFound(w)
		return
	}
	userID, action := parts[0], parts[1]

	var user *domain.User
	var err error
	switch action {
	case "ban":
		var payload struct {
			Reason string `json:"reason"`
		}
		if req.Body != nil {
			_ = json.NewDecoder(req.Body).Decode(&payload)
		}
		user, err = r.accounts.BanUser(req.Context(), userID, payload.Reason, who.UserID)
	case "unban":
		user, err = r.accounts.UnbanUser(req.Context(), userID)
	case "promote":
		user, err = r.accounts.GrantAdmin(req.Context(), userID)
	case "demote":
		user, err = r.accounts.RevokeAdmin(req.Context(), userID)
	default:
		r.notFound(w)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(user))
}

func (r *Router) handleBannedEmails(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		entries, err := r.bans.List(req.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		views := make([]bannedEmailView, 0, len(entries))
		for _, entry := range entries {
			views = append(views, toBannedEmailView(entry))
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		who, ok := identityFromContext(req.Context())
		if !ok {
			r.missingIdentity(w, req)
			return
		}
		var payload struct {
			Email  string `json:"email"`
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(payload.Email) == "" {
			writeError(w, http.StatusBadRequest, "email is required")
			return
		}
		entry, err := r.bans.Ban(req.Context(), payload.Email, payload.Reason, &who.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toBannedEmailView(*entry))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleBannedEmailDelete(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodDelete {
		r.methodNotAllowed(w)
		return
	}
	email := strings.TrimPrefix(req.URL.Path, "/admin/banned-emails/")
	if email == "" {
		r.notFound(w)
		return
	}
	if err := r.bans.Unban(req.Context(), email); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unbanned"})
}

// handleBoardWS subscribes the caller to their own board event feed.
func (r *Router) handleBoardWS(w http.ResponseWriter, req *http.Request) {
	who, ok := identityFromContext(req.Context())
	if !ok {
		r.missingIdentity(w, req)
		return
	}
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "board stream unavailable")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(who.UserID, client)
	go func() {
		defer func() {
			r.hub.Unregister(who.UserID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

func (r *Router) missingIdentity(w http.ResponseWriter, req *http.Request) {
	r.logger.Error("auth context missing", "path", req.URL.Path)
	writeError(w, http.StatusInternalServerError, "authorization context missing")
}

// audit wraps handlers with request logging and metrics.
func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		httpInFlight.Inc()
		next(recorder, req)
		httpInFlight.Dec()

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if who, ok := identityFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", who.UserID)
		}
		fields = append(fields, "actor", actor)

		r.recordRequestMetrics(req.Method, req.URL.Path, status, duration)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

func clientIP(req *http.Request) string {
	if fwd := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacking not supported")
}
