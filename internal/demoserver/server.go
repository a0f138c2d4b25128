// /internal/demoserver/server.go

package demoserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Chinzzii/rpsbench/internal/pagestore"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nuclio/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>rpsbench</title></head>
<body><h1>It works</h1></body>
</html>
`

// PageStore is the subset of the page store the server reads from.
type PageStore interface {
	GetPage(path string) (*pagestore.Page, error)
}

// Server is a load-test target. It answers GET requests with pages from a
// store, and two query parameters shape the response:
//
//	delay=<duration>  sleep before answering (e.g. delay=10ms)
//	status=<code>     answer with this status instead of the page
type Server struct {
	logger   *zap.SugaredLogger
	store    PageStore
	registry *prometheus.Registry
	stats    *stats
	router   chi.Router
}

func NewServer(logger *zap.SugaredLogger, store PageStore) *Server {
	server := &Server{
		logger:   logger,
		store:    store,
		registry: prometheus.NewRegistry(),
	}
	server.stats = newStats(server.registry)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.HandlerFor(server.registry, promhttp.HandlerOpts{}))
	router.Get("/*", server.servePage)
	server.router = router

	return server
}

// SeedDefaultPages writes the pages the server is expected to serve out of the box.
func SeedDefaultPages(store *pagestore.Store) error {
	if err := store.PutPage(pagestore.Page{
		Path:        "/",
		ContentType: "text/html; charset=UTF-8",
		Body:        []byte(indexPage),
	}); err != nil {
		return errors.Wrap(err, "Failed to seed index page")
	}
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if delayStr := query.Get("delay"); delayStr != "" {
		delay, err := time.ParseDuration(delayStr)
		if err != nil || delay < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid delay")
			return
		}
		time.Sleep(delay)
	}

	if statusStr := query.Get("status"); statusStr != "" {
		status, err := strconv.Atoi(statusStr)
		if err != nil || status < 100 || status > 599 {
			s.writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		s.stats.servedTotal.WithLabelValues(strconv.Itoa(status)).Inc()
		w.WriteHeader(status)
		return
	}

	start := time.Now()
	page, err := s.store.GetPage(r.URL.Path)
	if err == pagestore.ErrPageNotFound {
		s.writeError(w, http.StatusNotFound, "page not found")
		return
	} else if err != nil {
		s.logger.Warnw("Failed to read page", "path", r.URL.Path, "err", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.stats.readLatency.Observe(time.Since(start).Seconds())

	s.stats.servedTotal.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	w.Header().Set("Content-Type", page.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(page.Body)))
	w.WriteHeader(http.StatusOK)
	w.Write(page.Body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.stats.servedTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	http.Error(w, message, status)
}
