package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/five82/dailystrip/internal/fetch"
	"github.com/five82/dailystrip/internal/poller"
	"github.com/five82/dailystrip/internal/state"
	"github.com/five82/dailystrip/internal/strip"
)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json; charset=utf-8"
	shutdownTimeout   = 5 * time.Second
)

// Scheduler is the part of the poller the API needs.
type Scheduler interface {
	Snapshot() state.Snapshot
	Status() poller.Status
	FetchNow(previous strip.Checksum) bool
	Refresh() bool
}

type handler struct {
	sched  Scheduler
	logger *slog.Logger
}

// NewRouter returns the HTTP API for sched.
func NewRouter(sched Scheduler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handler{sched: sched, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/strip", h.getStrip)
		r.Get("/strip/image", h.getImage)
		r.Head("/strip/image", h.getImage)
		r.Post("/fetch", h.postFetch)
		r.Get("/status", h.getStatus)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})
	return r
}

func (h *handler) getStrip(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, stripResponse(h.sched.Snapshot()))
}

func (h *handler) getImage(w http.ResponseWriter, r *http.Request) {
	s := h.sched.Snapshot().Strip
	if s.IsMissing() {
		respondError(w, http.StatusNotFound, "no strip cached")
		return
	}

	etag := `"` + string(s.Checksum()) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), s.Checksum()) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	image := s.Image()
	contentType := s.ContentType()
	if contentType == "" {
		contentType = mimetype.Detect(image).String()
	}
	w.Header().Set(headerContentType, contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(image)))
	if title := s.Title(); title != "" {
		w.Header().Set(fetch.TitleHeader, title)
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(image)
}

// postFetch triggers a fetch. ?force=true downloads even when unchanged.
func (h *handler) postFetch(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	var submitted bool
	if force {
		submitted = h.sched.Refresh()
	} else {
		submitted = h.sched.FetchNow(h.sched.Snapshot().Strip.Checksum())
	}
	if !submitted {
		respondJSON(w, http.StatusConflict, FetchResponse{Force: force, Reason: "fetch in progress or not permitted"})
		return
	}
	respondJSON(w, http.StatusAccepted, FetchResponse{Submitted: true, Force: force})
}

func (h *handler) getStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse(h.sched.Status(), h.sched.Snapshot()))
}

// etagMatches evaluates an If-None-Match header against the strip checksum.
func etagMatches(header string, sum strip.Checksum) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		tag = strings.TrimPrefix(tag, "W/")
		if strings.Trim(tag, `"`) == string(sum) {
			return true
		}
	}
	return false
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("api request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Serve runs the API on addr until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("api listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
