package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ktassist/internal/ratelimit"
	"ktassist/internal/util"
	"ktassist/pkg/domain"
	"ktassist/pkg/knowledge"
	"ktassist/services/kt/internal/app"
)

const serviceName = "kt"

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// LoginLimiter is optional; nil disables login rate limiting.
	LoginLimiter   *ratelimit.FixedWindowLimiter
	TrustedProxies *util.TrustedProxies
	MaxUploadBytes int64
}

// Server exposes the knowledge transfer API.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	loginLimiter   *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		loginLimiter:   cfg.LoginLimiter,
		trustedProxies: cfg.TrustedProxies,
		maxUploadBytes: normalizeMaxBytes(cfg.MaxUploadBytes),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the standard middleware chain.
func (s *Server) Router() http.Handler {
	return util.Wrap(serviceName, s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.Handle("/api/logout", s.authenticated(s.handleLogout))
	s.mux.Handle("/api/documents", s.authenticated(s.handleDocuments))
	s.mux.Handle("/api/summaries", s.authenticated(s.handleSummaries))
	s.mux.Handle("/api/chat", s.authenticated(s.handleChat))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.app.SessionCount()})
}

type sessionHandler func(http.ResponseWriter, *http.Request, *knowledge.Session)

func (s *Server) authenticated(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "kt.authorize", "fail", "reason", "missing_token")
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}
		sess, err := s.app.Authenticate(token)
		if err != nil {
			s.audit(r, "kt.authorize", "fail", "reason", err.Error())
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}
		next(w, r, sess)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	if !s.allowLogin(w, r) {
		s.audit(r, "kt.login", "rate_limited")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body", "invalid_json")
		return
	}
	res, err := s.app.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, app.ErrMissingCredentials):
		writeError(w, r, http.StatusBadRequest, "Please enter email and password", "missing_credentials")
		return
	case errors.Is(err, app.ErrInvalidCredentials):
		s.audit(r, "kt.login", "fail", "reason", "invalid_credentials")
		writeError(w, r, http.StatusUnauthorized, "invalid credentials", "invalid_credentials")
		return
	case err != nil:
		util.LoggerFromContext(r.Context()).Error("login failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "login failed", "internal")
		return
	}
	s.audit(r, "kt.login", "success", "email", res.Email)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, sess *knowledge.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	s.app.Logout(sess)
	s.audit(r, "kt.logout", "success", "email", sess.Email)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request, sess *knowledge.Session) {
	switch r.Method {
	case http.MethodGet:
		docs := s.app.Documents(sess)
		writeJSON(w, http.StatusOK, map[string]any{"items": docs, "count": len(docs)})
	case http.MethodPost:
		s.handleUpload(w, r, sess)
	default:
		methodNotAllowed(w, r)
	}
}

type uploadItem struct {
	knowledge.IngestResult
	Error string `json:"error,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, sess *knowledge.Session) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "upload too large", "too_large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid form data", "invalid_form")
		return
	}
	defer r.MultipartForm.RemoveAll()
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeError(w, r, http.StatusBadRequest, "file is required (field: file)", "file_required")
		return
	}

	uploads := make([]knowledge.Upload, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("read %s failed", h.Filename), "invalid_form")
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, knowledge.Upload{Filename: h.Filename, Body: f})
	}

	results, errs := s.app.Upload(r.Context(), sess, uploads)
	items := make([]uploadItem, len(results))
	processed := 0
	for i := range results {
		items[i] = uploadItem{IngestResult: results[i]}
		if errs[i] != nil {
			items[i].Error = errs[i].Error()
			continue
		}
		if !results[i].Skipped {
			processed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "processed": processed})
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request, sess *knowledge.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}
	items := s.app.Summaries(sess)
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, sess *knowledge.Session) {
	switch r.Method {
	case http.MethodGet:
		turns := s.app.History(sess)
		writeJSON(w, http.StatusOK, map[string]any{"items": turns, "count": len(turns)})
	case http.MethodPost:
		var req chatRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid JSON body", "invalid_json")
			return
		}
		turn, err := s.app.Ask(r.Context(), sess, req.Question)
		if errors.Is(err, knowledge.ErrEmptyQuestion) {
			writeError(w, r, http.StatusBadRequest, "question is required", "question_required")
			return
		}
		if err != nil {
			util.LoggerFromContext(r.Context()).Error("chat failed", "err", err)
			writeError(w, r, http.StatusInternalServerError, "chat failed", "internal")
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{Question: req.Question, Answer: turn})
	default:
		methodNotAllowed(w, r)
	}
}

type chatResponse struct {
	Question string          `json:"question"`
	Answer   domain.ChatTurn `json:"answer"`
}

// allowLogin applies the login limiter when configured. A limiter failure
// denies the attempt.
func (s *Server) allowLogin(w http.ResponseWriter, r *http.Request) bool {
	if s.loginLimiter == nil {
		return true
	}
	d, err := s.loginLimiter.Allow(r.Context(), util.ClientIP(r, s.trustedProxies))
	if err != nil {
		util.LoggerFromContext(r.Context()).Warn("login rate limiter unavailable", "err", err)
		writeError(w, r, http.StatusServiceUnavailable, "login temporarily unavailable", "rate_limiter_unavailable")
		return false
	}
	if !d.Allowed {
		secs := int(d.RetryAfter.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeError(w, r, http.StatusTooManyRequests, "too many login attempts", "rate_limited")
		return false
	}
	return true
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed", "method_not_allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg, code string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code, RequestID: util.RequestIDFromRequest(r)})
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 50 << 20
	}
	return value
}
