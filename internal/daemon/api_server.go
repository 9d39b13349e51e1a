package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"requestarr/internal/api"
	"requestarr/internal/config"
	"requestarr/internal/logging"
	"requestarr/internal/search"
	"requestarr/internal/services"
)

const defaultLogLimit = 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	requestSvc *api.RequestService
	syncSvc    *api.SyncService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address is required")
	}

	srv := &apiServer{
		bind:       bind,
		logger:     logger,
		daemon:     d,
		requestSvc: api.NewRequestService(d.store),
		syncSvc:    api.NewSyncService(d.store, d.engine),
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/sync", authMiddleware(token, srv.handleSync))
	mux.HandleFunc("/api/sync/logs", authMiddleware(token, srv.handleSyncLogs))
	mux.HandleFunc("/api/sync/logs/", authMiddleware(token, srv.handleSyncLog))
	mux.HandleFunc("/api/requests", authMiddleware(token, srv.handleRequests))
	mux.HandleFunc("/api/requests/", authMiddleware(token, srv.handleRequest))
	mux.HandleFunc("/api/search", authMiddleware(token, srv.handleSearch))
	mux.HandleFunc("/api/library/search", authMiddleware(token, srv.handleLibrarySearch))

	srv.server = &http.Server{
		Handler:           srv.correlate(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// correlate assigns each API request an identifier that handlers and their
// downstream log lines share, and echoes it back to the caller.
func (s *apiServer) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		ctx := services.WithRequestID(r.Context(), id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
		logging.WithContext(ctx, s.log()).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path))
	})
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	view, err := s.syncSvc.Trigger(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrSyncAlreadyRunning) {
			s.writeError(w, http.StatusConflict, "sync already running")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.SyncLogResponse{Log: view})
}

func (s *apiServer) handleSyncLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultLogLimit
	}
	views, err := s.syncSvc.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.SyncLogListResponse{Logs: views})
}

func (s *apiServer) handleSyncLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := trailingID(r.URL.Path, "/api/sync/logs/")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid sync log id")
		return
	}
	view, err := s.syncSvc.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if view == nil {
		s.writeError(w, http.StatusNotFound, "sync log not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.SyncLogResponse{Log: *view})
}

func (s *apiServer) handleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		views, err := s.requestSvc.List(r.Context(), r.URL.Query()["status"]...)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.RequestListResponse{Requests: views})
	case http.MethodPost:
		var input api.CreateRequestInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		view, err := s.requestSvc.Create(r.Context(), input)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.RequestItemResponse{Request: view})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/requests/")
	if tail, found := strings.CutSuffix(rest, "/status"); found {
		s.handleRequestStatus(w, r, tail)
		return
	}
	id, ok := trailingID(r.URL.Path, "/api/requests/")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	switch r.Method {
	case http.MethodGet:
		view, err := s.requestSvc.Describe(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if view == nil {
			s.writeError(w, http.StatusNotFound, "request not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.RequestItemResponse{Request: *view})
	case http.MethodDelete:
		if err := s.requestSvc.Remove(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleRequestStatus(w http.ResponseWriter, r *http.Request, idPart string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var input api.SetStatusInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := s.requestSvc.SetStatus(r.Context(), id, input)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RequestItemResponse{Request: view})
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.searchSvc == nil {
		s.writeError(w, http.StatusServiceUnavailable, "search providers not configured")
		return
	}
	query := r.URL.Query()
	results, err := s.daemon.searchSvc.Search(r.Context(), searchQuery(query))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SearchResponse{Results: results})
}

func (s *apiServer) handleLibrarySearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.abs == nil {
		s.writeError(w, http.StatusServiceUnavailable, "audiobookshelf is not configured")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	items, err := s.daemon.abs.Search(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.LibrarySearchResponse{Items: items})
}

// writeServiceError maps sentinel classifications onto HTTP status codes.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrNotConfigured):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, services.ErrUnavailable):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}

func searchQuery(values url.Values) search.Query {
	page, _ := strconv.Atoi(values.Get("page"))
	return search.Query{
		Text:     values.Get("q"),
		Author:   values.Get("author") == "1" || strings.EqualFold(values.Get("author"), "true"),
		Narrator: values.Get("narrator") == "1" || strings.EqualFold(values.Get("narrator"), "true"),
		Page:     page,
	}
}

func trailingID(path, prefix string) (int64, bool) {
	idStr := strings.TrimPrefix(path, prefix)
	if idStr == "" || strings.Contains(idStr, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
