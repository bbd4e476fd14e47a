package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/voyagen/xtreamrelay/api"
	"github.com/voyagen/xtreamrelay/internal/config"
	xlog "github.com/voyagen/xtreamrelay/internal/log"
	"github.com/voyagen/xtreamrelay/internal/relay"
	"github.com/voyagen/xtreamrelay/internal/xtream"
)

// Server exposes relay operations over HTTP. The session identifier travels
// in an HttpOnly cookie.
type Server struct {
	relay  *relay.Relay
	cfg    *config.Config
	router chi.Router
	logger zerolog.Logger
}

// New creates a Server and registers routes.
func New(r *relay.Relay, cfg *config.Config) *Server {
	srv := &Server{relay: r, cfg: cfg, router: chi.NewRouter(), logger: xlog.WithComponent("server")}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(xlog.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, relay.Result{Status: "error", Message: "Not Found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, relay.Result{Status: "error", Message: "Method Not Allowed"})
	})

	r.Get("/api/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.With(ConnectRateLimit(s.cfg.ConnectRateLimit)).Post("/connect", s.handleConnect)
	r.Get("/categories", s.handleCategories)
	r.Get("/streams", s.handleStreams)
	r.Get("/stream_info/{streamID}", s.handleStreamInfo)
	r.Get("/account", s.handleAccount)
	r.Get("/playlist.m3u", s.handlePlaylist)
	r.Get("/logout", s.handleLogout)
	r.Post("/logout", s.handleLogout)

	r.Get("/api/docs", handleDocs)
	r.Get(specPath, handleOpenAPISpec)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * xtream.RequestTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type connectRequest struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("%w: invalid JSON body", relay.ErrValidation))
		return
	}

	previous := s.sessionID(r)
	id := uuid.NewString()
	auth, err := s.relay.Connect(r.Context(), id, req.Server, req.Username, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	if previous != "" {
		if err := s.relay.Disconnect(r.Context(), previous); err != nil {
			s.logger.Warn().Err(err).Msg("drop previous session")
		}
	}
	s.setSessionCookie(w, id)
	writeJSON(w, http.StatusOK, relay.Success(auth))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.relay.Categories(r.Context(), s.sessionID(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	if sortByName(r) {
		xtream.SortCategories(cats)
	}
	writeJSON(w, http.StatusOK, relay.Success(nonNil(cats)))
}

func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	channels, err := s.relay.Streams(r.Context(), s.sessionID(r), q.Get("category_id"), q.Get("search"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if sortByName(r) {
		xtream.SortChannels(channels)
	}
	writeJSON(w, http.StatusOK, relay.Success(nonNil(channels)))
}

func (s *Server) handleStreamInfo(w http.ResponseWriter, r *http.Request) {
	guide, err := s.relay.StreamGuide(r.Context(), s.sessionID(r), chi.URLParam(r, "streamID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, relay.Success(guide))
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	info, err := s.relay.AccountInfo(r.Context(), s.sessionID(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, relay.Success(info))
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	doc, ok, err := s.relay.ExportPlaylist(r.Context(), s.sessionID(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, relay.Result{Status: "error", Message: "Nothing to export"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="playlist.m3u"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.relay.Disconnect(r.Context(), s.sessionID(r)); err != nil {
		writeErr(w, err)
		return
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, relay.Result{Status: "success"})
}

// --- session cookie ---

func (s *Server) sessionID(r *http.Request) string {
	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	c := &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.cfg.SessionTTL > 0 {
		c.MaxAge = int(s.cfg.SessionTTL.Seconds())
	}
	http.SetCookie(w, c)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// --- helpers ---

// sortByName is on unless the caller passes sort=none.
func sortByName(r *http.Request) bool {
	return r.URL.Query().Get("sort") != "none"
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func statusFor(kind relay.Kind) int {
	switch kind {
	case relay.KindValidation:
		return http.StatusBadRequest
	case relay.KindNotAuthorized:
		return http.StatusUnauthorized
	case relay.KindUpstreamError:
		return http.StatusForbidden
	case relay.KindUpstreamUnreachable, relay.KindUpstreamFormat:
		return http.StatusBadGateway
	case relay.KindAccountInfoUnavailable:
		return http.StatusNotFound
	case relay.KindStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := xlog.WithComponent("server")
		logger.Error().Err(err).Msg("writeJSON")
	}
}

func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(relay.Classify(err))
	if status >= 500 && status != http.StatusBadGateway {
		logger := xlog.WithComponent("server")
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, relay.Failure(err))
}

// --- docs handlers ---

func handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPISpec)
}

const specPath = "/api/docs/openapi.yaml"

var docsPage = template.Must(template.New("docs").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
<redoc spec-url="{{.SpecURL}}" hide-download-button></redoc>
<script src="https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"></script>
</body>
</html>
`))

func handleDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := docsPage.Execute(w, struct{ Title, SpecURL string }{"xtreamrelay API", specPath})
	if err != nil {
		logger := xlog.WithComponent("server")
		logger.Error().Err(err).Msg("render docs")
	}
}
