package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/domain"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/repository"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/service/auth"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/service/livre"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/internal/storage"
	"github.com/bibalaye/Mini-projet-gestion-des-livres-EDACY/pkg/config"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux            *http.ServeMux
	logger         *slog.Logger
	auth           auth.Service
	livres         livre.Service
	images         *storage.ImageStore
	limiter        RateLimiter
	frontendURL    string
	maxUploadBytes int64
	dbHealth       func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault   = time.Minute
	rateLimitRegister   = 5
	rateLimitLogin      = 12
	rateLimitUserWrite  = 60
	rateLimitUserRead   = 120
	rateLimitPublicRead = 120
	healthCheckTimeout  = 2 * time.Second
	maxMultipartMemory  = 8 << 20
	uploadFormOverhead  = 512 << 10
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, livreSvc livre.Service, images *storage.ImageStore, limiter RateLimiter, cfg config.APIConfig, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:            http.NewServeMux(),
		logger:         logger,
		auth:           authSvc,
		livres:         livreSvc,
		images:         images,
		limiter:        limiter,
		frontendURL:    strings.TrimSpace(cfg.FrontendURL),
		maxUploadBytes: cfg.MaxUploadBytes,
		dbHealth:       dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP applies CORS and delegates to the underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if !r.applyCORS(w, req) {
		return
	}
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/api/auth/register", r.audit("auth_register", r.withRateLimit("auth_register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/api/auth/login", r.audit("auth_login", r.withRateLimit("auth_login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/api/auth/me", r.audit("auth_me", r.handlerAuthRate("auth_me", rateLimitUserRead, rateWindowDefault, r.handleMe)))
	r.mux.HandleFunc("/api/livres", r.audit("livres", r.handleLivres))
	r.mux.HandleFunc("/api/livres/", r.audit("livres_item", r.handleLivreSubroutes))
	if r.images != nil {
		files := http.StripPrefix(storage.PublicPrefix+"/", http.FileServer(http.Dir(r.images.Dir())))
		r.mux.HandleFunc(storage.PublicPrefix+"/", r.audit("uploads", files.ServeHTTP))
	}
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload registerPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if errs := validateRegister(payload); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}
	user, token, err := r.auth.Register(req.Context(), payload.Email, payload.Password, payload.Nom, payload.Prenom)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
		r.logger.Error("registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  userPayload(user),
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload loginPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if errs := validateLogin(payload); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}
	user, token, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		r.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userPayload(user),
	})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for me route", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	user, err := r.auth.GetUser(req.Context(), info.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		r.logger.Error("user lookup failed", "error", err, "user_id", info.UserID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, userPayload(user))
}

func (r *Router) handleLivres(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		r.withRateLimit("livres_list", rateLimitPublicRead, rateWindowDefault, rateLimitKeyIP, r.handleListLivres)(w, req)
	case http.MethodPost:
		r.handlerAuthRate("livres_create", rateLimitUserWrite, rateWindowDefault, r.handleCreateLivre)(w, req)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleLivreSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/api/livres/")
	if trimmed == "" {
		r.notFound(w)
		return
	}
	if trimmed == "me/livres" {
		if req.Method != http.MethodGet {
			r.methodNotAllowed(w)
			return
		}
		r.handlerAuthRate("livres_mine", rateLimitUserRead, rateWindowDefault, r.handleMyLivres)(w, req)
		return
	}
	if strings.Contains(trimmed, "/") {
		r.notFound(w)
		return
	}
	id := trimmed
	switch req.Method {
	case http.MethodGet:
		r.withRateLimit("livres_get", rateLimitPublicRead, rateWindowDefault, rateLimitKeyIP, func(w http.ResponseWriter, req *http.Request) {
			r.handleGetLivre(w, req, id)
		})(w, req)
	case http.MethodPut:
		r.handlerAuthRate("livres_update", rateLimitUserWrite, rateWindowDefault, func(w http.ResponseWriter, req *http.Request) {
			r.handleUpdateLivre(w, req, id)
		})(w, req)
	case http.MethodDelete:
		r.handlerAuthRate("livres_delete", rateLimitUserWrite, rateWindowDefault, func(w http.ResponseWriter, req *http.Request) {
			r.handleDeleteLivre(w, req, id)
		})(w, req)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleListLivres(w http.ResponseWriter, req *http.Request) {
	livres, err := r.livres.List(req.Context())
	if err != nil {
		r.logger.Error("listing livres failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, livres)
}

func (r *Router) handleGetLivre(w http.ResponseWriter, req *http.Request, id string) {
	entry, err := r.livres.Get(req.Context(), id)
	if err != nil {
		r.writeLivreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (r *Router) handleMyLivres(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for my livres route", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	livres, err := r.livres.ListMine(req.Context(), info.UserID)
	if err != nil {
		r.logger.Error("listing own livres failed", "error", err, "user_id", info.UserID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, livres)
}

func (r *Router) handleCreateLivre(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for livre creation", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	input, ok := r.livreInputFromForm(w, req)
	if !ok {
		return
	}
	entry, err := r.livres.Create(req.Context(), info.UserID, input)
	if err != nil {
		r.writeLivreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (r *Router) handleUpdateLivre(w http.ResponseWriter, req *http.Request, id string) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for livre update", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	input, ok := r.livreInputFromForm(w, req)
	if !ok {
		return
	}
	entry, err := r.livres.Update(req.Context(), id, info.UserID, input)
	if err != nil {
		r.writeLivreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (r *Router) handleDeleteLivre(w http.ResponseWriter, req *http.Request, id string) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for livre deletion", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	if err := r.livres.Delete(req.Context(), id, info.UserID); err != nil {
		r.writeLivreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "livre deleted"})
}

// livreInputFromForm parses and validates the multipart body shared by create
// and update. The optional image file is stored only after field validation
// passes, so rejected requests never leave files behind.
func (r *Router) livreInputFromForm(w http.ResponseWriter, req *http.Request) (livre.Input, bool) {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUploadBytes+uploadFormOverhead)
	if err := req.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return livre.Input{}, false
	}
	form := livreForm{
		Titre:       req.FormValue("titre"),
		Auteur:      req.FormValue("auteur"),
		AnneeRaw:    strings.TrimSpace(req.FormValue("annee_publication")),
		Genre:       req.FormValue("genre"),
		Description: req.FormValue("description"),
	}
	form.AnneePublication, _ = strconv.Atoi(form.AnneeRaw)
	if errs := validateLivre(form); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return livre.Input{}, false
	}
	input := livre.Input{
		Titre:            form.Titre,
		Auteur:           form.Auteur,
		AnneePublication: form.AnneePublication,
		Genre:            form.Genre,
		Description:      form.Description,
	}

	file, header, err := req.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		path, saveErr := r.images.Save("image", header.Filename, header.Header.Get("Content-Type"), file)
		if saveErr != nil {
			if errors.Is(saveErr, storage.ErrUnsupportedType) {
				writeError(w, http.StatusBadRequest, "only images are allowed")
				return livre.Input{}, false
			}
			r.logger.Error("storing upload failed", "error", saveErr)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return livre.Input{}, false
		}
		input.Image = path
	case errors.Is(err, http.ErrMissingFile):
		// no image attached
	default:
		writeError(w, http.StatusBadRequest, "invalid form data")
		return livre.Input{}, false
	}
	return input, true
}

func (r *Router) writeLivreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "livre not found")
	case errors.Is(err, livre.ErrForbidden):
		writeError(w, http.StatusForbidden, "not authorized")
	case errors.Is(err, repository.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid livre data")
	default:
		r.logger.Error("livre operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func userPayload(u *domain.User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"nom":        u.Nom,
		"prenom":     u.Prenom,
		"created_at": u.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

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
		actor := "anonymous"
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

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

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
