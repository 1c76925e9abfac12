package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"

	_ "github.com/alphabot-ai/storyshelf/docs" // swagger docs
	"github.com/alphabot-ai/storyshelf/internal/config"
	"github.com/alphabot-ai/storyshelf/internal/rate"
	"github.com/alphabot-ai/storyshelf/internal/store"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

type Server struct {
	store   store.Store
	uploads Uploader
	limiter rate.Limiter
	cfg     config.Config
	logger  *slog.Logger
	handler http.Handler
}

func NewServer(st store.Store, uploads Uploader, limiter rate.Limiter, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if uploads == nil {
		return nil, errors.New("uploader is required")
	}
	if limiter == nil {
		limiter = rate.AllowAll{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{store: st, uploads: uploads, limiter: limiter, cfg: cfg, logger: logger}
	s.handler = s.accessLog(s.cors().Handler(s.routes()))
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// Unknown /api paths fall through to r.NotFoundHandler. A subrouter
	// NotFoundHandler would turn method mismatches into 404s.
	api := r.PathPrefix("/api").Subrouter()
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler

	api.HandleFunc("/stories", s.handleListStories).Methods(http.MethodGet)
	api.HandleFunc("/stories", s.handleCreateStory).Methods(http.MethodPost)
	api.HandleFunc("/stories/{id}", s.handleGetStory).Methods(http.MethodGet)
	api.HandleFunc("/stories/{id}/comments", s.handleListComments).Methods(http.MethodGet)
	api.HandleFunc("/stories/{id}/comments", s.handleCreateComment).Methods(http.MethodPost)
	api.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/upload/presigned", s.handlePresign).Methods(http.MethodPost)
	api.HandleFunc("/upload/{key:.+}", s.handleDeleteUpload).Methods(http.MethodDelete)
	api.HandleFunc("/openapi.json", s.serveOpenAPIJSON).Methods(http.MethodGet)
	return r
}

func (s *Server) cors() *cors.Cors {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
			"remote", s.clientIP(r),
		)
	})
}

// handleHealth godoc
//
//	@Summary	Liveness probe
//	@Tags		Meta
//	@Produce	json
//	@Success	200	{object}	envelope
//	@Router		/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		s.internalError(w, r, err, "Failed to load API document")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write([]byte(doc))
}

func (s *Server) allowRateLimit(w http.ResponseWriter, r *http.Request, action string, limit int) bool {
	if limit <= 0 {
		return true
	}
	ipKey := fmt.Sprintf("%s:ip:%s", action, s.clientIP(r))
	if ok, retry := s.limiter.Allow(ipKey, limit, time.Minute); !ok {
		writeRateLimit(w, retry)
		return false
	}
	return true
}

func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// internalError logs err with request context and answers with a fixed
// message.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	s.logger.Error(message,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, errors.New(message))
}

// envelope wraps every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func readJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer body.Close()
	dec := json.NewDecoder(body)
	if err := dec.Decode(dest); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, envelope{Success: false, Error: err.Error()})
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	secs := int(retry.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, errors.New("Too many requests, please try again later"))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, errors.New("Not found"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("Method not allowed"))
}
