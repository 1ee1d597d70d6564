package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/bore/internal/config"
	"github.com/vango-dev/bore/internal/errors"
	"github.com/vango-dev/bore/internal/source"
	"github.com/vango-dev/bore/pkg/bore"
	"github.com/vango-dev/bore/pkg/domdiff"
	"github.com/vango-dev/bore/pkg/loop"
	"github.com/vango-dev/bore/pkg/telemetry"
)

// Config configures a Server.
type Config struct {
	// Addr is the listen address.
	Addr string

	// ReadTimeout bounds reading a request.
	ReadTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// MaxBody caps request bodies.
	MaxBody int64

	// WaitTimeout bounds waits that give no timeout and run on an arena
	// without a default timeout.
	WaitTimeout time.Duration

	// Namespace prefixes the exported metrics.
	Namespace string

	// ArenaOptions are passed to the server's arena after its own.
	ArenaOptions []bore.Option

	// Loader resolves fixture sources named in mount requests. Nil
	// disables source mounts.
	Loader *source.Loader

	// Registry collects metrics. A fresh registry is used if nil.
	Registry *prometheus.Registry

	Logger *slog.Logger
}

// FromConfig builds a server Config from a loaded bore config.
func FromConfig(cfg *config.Config, logger *slog.Logger) Config {
	return Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout.D(),
		MaxBody:      cfg.Server.MaxBody,
		WaitTimeout:  cfg.Server.WaitTimeout.D(),
		Namespace:    cfg.Metrics.Namespace,
		ArenaOptions: cfg.ArenaOptions(),
		Loader:       source.FromConfig(cfg.Source, source.WithLogger(logger)),
		Logger:       logger,
	}
}

// Server exposes one arena over HTTP and WebSocket. Requests and loop
// tasks are serialized because an arena is not safe for concurrent use.
// Waits hold the lock only while a poll runs.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	registry *prometheus.Registry
	router   chi.Router
	upgrader websocket.Upgrader

	mu      sync.Mutex
	arena   *bore.Arena
	current *bore.Wrapper

	httpServer *http.Server
}

// New creates a server and its arena.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = config.DefaultAddr
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.MaxBody == 0 {
		cfg.MaxBody = config.DefaultMaxBody
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = config.DefaultWaitTimeout
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultNamespace
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "server"),
		registry: cfg.Registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	metrics := telemetry.NewMetrics(
		telemetry.WithNamespace(cfg.Namespace),
		telemetry.WithRegistry(cfg.Registry),
	)
	events := loop.New(
		loop.WithLogger(cfg.Logger.With("component", "loop")),
		loop.WithTaskLock(&s.mu),
	)
	opts := []bore.Option{
		bore.WithLogger(cfg.Logger),
		bore.WithMetrics(metrics),
		bore.WithLoop(events),
		bore.WithReleaseDetached(true),
	}
	s.arena = bore.New(append(opts, cfg.ArenaOptions...)...)

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Post("/mount", s.handleMount)
	r.Get("/query", s.handleQuery)
	r.Get("/wait", s.handleWait)
	r.Post("/diff", s.handleDiff)
	r.Get("/ws", s.handleWebSocket)
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Arena returns the arena requests operate on.
func (s *Server) Arena() *bore.Arena { return s.arena }

// Run listens on the configured address until ctx ends, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.cfg.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return errors.Wrap(err, "B051")
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops the HTTP server and closes the arena.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	return s.arena.Close()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Match describes one query result.
type Match struct {
	Node string `json:"node"`
	HTML string `json:"html"`
	Text string `json:"text"`
}

// Matches describes ws in order.
func Matches(ws []*bore.Wrapper) []Match {
	out := make([]Match, 0, len(ws))
	for _, w := range ws {
		out = append(out, Match{Node: w.Node().NodeName(), HTML: w.HTML(), Text: w.Text()})
	}
	return out
}

type mountRequest struct {
	Markup string `json:"markup"`
	Source string `json:"source"`
}

type mountResponse struct {
	Node string `json:"node"`
	HTML string `json:"html"`
}

type queryResponse struct {
	Count   int     `json:"count"`
	Matches []Match `json:"matches"`
}

type diffRequest struct {
	A        string `json:"a"`
	B        string `json:"b"`
	Children bool   `json:"children"`
}

type diffResponse struct {
	Equal   bool     `json:"equal"`
	Patches []string `json:"patches"`
}

var errNotMounted = errors.New("B050").WithDetail("nothing is mounted; POST /mount first")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMount(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, errors.Wrap(err, "B050"))
		return
	}

	req := mountRequest{Markup: string(body)}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		req = mountRequest{}
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, errors.Wrap(err, "B050"))
			return
		}
	}

	resp, err := s.mount(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) mount(ctx context.Context, req mountRequest) (mountResponse, error) {
	markup := req.Markup
	if req.Source != "" {
		if s.cfg.Loader == nil {
			return mountResponse{}, errors.New("B042").WithDetail("source mounts are disabled")
		}
		data, err := s.cfg.Loader.LoadString(ctx, req.Source)
		if err != nil {
			return mountResponse{}, err
		}
		markup = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	wrapper, err := s.arena.Mount(markup)
	if err != nil {
		return mountResponse{}, err
	}
	s.current = wrapper
	return mountResponse{Node: wrapper.Node().NodeName(), HTML: wrapper.HTML()}, nil
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q, err := bore.ParseQuery(queryKind(r), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		writeError(w, http.StatusConflict, errNotMounted)
		return
	}
	resp, err := s.query(q)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// query runs q against the current mount. s.mu must be held.
func (s *Server) query(q bore.Query) (queryResponse, error) {
	found, err := s.current.All(q)
	if err != nil {
		return queryResponse{}, err
	}
	return queryResponse{Count: len(found), Matches: Matches(found)}, nil
}

func (s *Server) handleWait(w http.ResponseWriter, r *http.Request) {
	q, err := bore.ParseQuery(queryKind(r), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	var timeout time.Duration
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		timeout, err = time.ParseDuration(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.Wrap(err, "B050"))
			return
		}
	}

	resp, err := s.wait(r.Context(), q, timeout)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// wait polls until q matches under the current mount. s.mu must not be
// held: the loop takes it for every poll, so other requests run between
// polls and a remount is seen by the next one.
func (s *Server) wait(ctx context.Context, q bore.Query, timeout time.Duration) (queryResponse, error) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()
	if current == nil {
		return queryResponse{}, errNotMounted
	}

	if timeout <= 0 && s.arena.Options().Timeout <= 0 {
		timeout = s.cfg.WaitTimeout
	}
	var opts []bore.WaitOption
	if timeout > 0 {
		opts = append(opts, bore.WithTimeout(timeout))
	}
	_, err := current.WaitFor(ctx, func(*bore.Wrapper) (bool, error) {
		if s.current == nil {
			return false, nil
		}
		return s.current.Has(q)
	}, opts...)
	if err != nil {
		return queryResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query(q)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "B050"))
		return
	}
	resp, err := diff(req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func diff(req diffRequest) (diffResponse, error) {
	patches, err := domdiff.DiffHTML(req.A, req.B, !req.Children)
	if err != nil {
		return diffResponse{}, err
	}
	out := diffResponse{Equal: len(patches) == 0, Patches: make([]string, 0, len(patches))}
	for _, p := range patches {
		out.Patches = append(out.Patches, p.String())
	}
	return out, nil
}

func queryKind(r *http.Request) string { return r.URL.Query().Get("kind") }

// statusFor maps an error to an HTTP status by its category.
func statusFor(err error) int {
	if err == errNotMounted {
		return http.StatusConflict
	}
	be := errors.FromError(err)
	switch be.Category {
	case errors.CategoryQuery, errors.CategoryMount:
		return http.StatusBadRequest
	case errors.CategorySource:
		if be.Code == "B040" {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case errors.CategoryWait:
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintln(w, errors.FromError(err).FormatJSON())
}

// errorJSON returns err as a raw JSON object for embedding in replies.
func errorJSON(err error) json.RawMessage {
	return json.RawMessage(errors.FromError(err).FormatJSON())
}
