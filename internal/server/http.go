package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"minidb/internal/engine"
	"minidb/internal/sql"
	"minidb/internal/storage"
)

const (
	maxQueryBody   = 1 << 20
	requestTimeout = 30 * time.Second
)

// Router returns the HTTP API:
//
//	GET  /healthz
//	GET  /v1/databases
//	GET  /v1/databases/{db}/tables
//	POST /v1/databases/{db}/query   body: one command
//
// Every /v1 response body is an engine result.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		s.logRequests,
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
	)

	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/databases", s.handleListDatabases)
	r.Get("/v1/databases/{db}/tables", s.handleListTables)
	r.Post("/v1/databases/{db}/query", s.handleQuery)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListDatabases(w http.ResponseWriter, _ *http.Request) {
	writeResult(w, s.engine.Execute(engine.NewSession(), &sql.ShowDatabasesStmt{}))
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	sess, res := s.sessionFor(chi.URLParam(r, "db"))
	if sess == nil {
		writeResult(w, res)
		return
	}
	writeResult(w, s.engine.Execute(sess, &sql.ShowTablesStmt{}))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	sess, res := s.sessionFor(chi.URLParam(r, "db"))
	if sess == nil {
		writeResult(w, res)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxQueryBody))
	if err != nil {
		writeResult(w, engine.ErrorResult(storage.Errorf(storage.CodeSyntaxError, "read request body: %v", err)))
		return
	}
	cmd := strings.TrimSpace(string(body))
	if cmd == "" {
		writeResult(w, engine.ErrorResult(storage.Errorf(storage.CodeSyntaxError, "empty command")))
		return
	}

	s.logger.Debug("http query",
		"request_id", middleware.GetReqID(r.Context()),
		"session", sess.ID,
		"db", sess.Database)
	writeResult(w, s.execute(s.logger, sess, cmd))
}

// sessionFor returns a session already switched to db, or the failed USE
// result when db does not exist.
func (s *Server) sessionFor(db string) (*engine.Session, engine.Result) {
	sess := engine.NewSession()
	res := s.engine.Execute(sess, &sql.UseStmt{Name: db})
	if !res.OK() {
		return nil, res
	}
	return sess, res
}

func writeResult(w http.ResponseWriter, res engine.Result) {
	writeJSON(w, statusFor(res), res)
}

// statusFor maps a result's error kind onto an HTTP status.
func statusFor(res engine.Result) int {
	if res.OK() {
		return http.StatusOK
	}
	switch res.Kind {
	case storage.KindNotFound:
		return http.StatusNotFound
	case storage.KindValidation, storage.KindPredicate:
		return http.StatusBadRequest
	case storage.KindConstraint:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
