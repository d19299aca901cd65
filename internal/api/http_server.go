package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stockpile/internal/config"
	"stockpile/internal/database"
	"stockpile/internal/export"
	"stockpile/internal/metrics"
	"stockpile/internal/models"
	"stockpile/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the inventory API over HTTP.
type HTTPServer struct {
	cfg         config.APIConfig
	inventories *service.InventoryService
	items       *service.ItemService
	stats       *service.StatsService
	exporter    *export.Exporter
	auth        *HTTPAuth
	logger      *zerolog.Logger
	server      *http.Server
}

func NewHTTPServer(
	cfg config.APIConfig,
	inventories *service.InventoryService,
	items *service.ItemService,
	stats *service.StatsService,
	exporter *export.Exporter,
	auth *HTTPAuth,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:         cfg,
		inventories: inventories,
		items:       items,
		stats:       stats,
		exporter:    exporter,
		auth:        auth,
		logger:      logger,
	}

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/inventories", srv.handleInventories)
	apiMux.HandleFunc("/api/inventories/", srv.handleInventorySubtree)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.Handle("/api/", auth.Wrap(apiMux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInventories serves the collection: list and create.
func (s *HTTPServer) handleInventories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listInventories(w, r)
	case http.MethodPost:
		s.createInventory(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleInventorySubtree routes everything under /api/inventories/:
// the reserved my/stats/search collections, single inventories and
// their items.
func (s *HTTPServer) handleInventorySubtree(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/inventories/")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch segments[0] {
	case "my":
		s.requireMethod(w, r, http.MethodGet, func() { s.listMyInventories(w, r) })
		return
	case "stats":
		s.requireMethod(w, r, http.MethodGet, func() { s.collectStats(w, r) })
		return
	case "search":
		s.requireMethod(w, r, http.MethodGet, func() { s.searchInventories(w, r) })
		return
	}

	id := segments[0]
	switch {
	case len(segments) == 1:
		s.handleInventory(w, r, id)
	case len(segments) == 2 && segments[1] == "items":
		s.handleItems(w, r, id)
	case len(segments) == 2 && segments[1] == "export":
		s.requireMethod(w, r, http.MethodGet, func() { s.exportInventory(w, r, id) })
	case len(segments) == 3 && segments[1] == "items":
		s.handleItem(w, r, id, segments[2])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) requireMethod(w http.ResponseWriter, r *http.Request, method string, fn func()) {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	fn()
}

func (s *HTTPServer) listInventories(w http.ResponseWriter, r *http.Request) {
	inventories, err := s.inventories.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inventories)
}

func (s *HTTPServer) listMyInventories(w http.ResponseWriter, r *http.Request) {
	actor := ActorFromContext(r.Context())
	inventories, err := s.inventories.ListOwnedBy(r.Context(), actor)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inventories)
}

func (s *HTTPServer) collectStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Collect(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) searchInventories(w http.ResponseWriter, r *http.Request) {
	actor := ActorFromContext(r.Context())
	results, err := s.inventories.Search(r.Context(), actor, r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *HTTPServer) createInventory(w http.ResponseWriter, r *http.Request) {
	var inv models.Inventory
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	actor := ActorFromContext(r.Context())
	if err := s.inventories.Create(r.Context(), actor, &inv); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &inv)
}

func (s *HTTPServer) handleInventory(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		inv, err := s.inventories.Get(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	case http.MethodPut:
		// customFields декодируем в указатель: отсутствие поля в JSON
		// означает "схему не трогать", а не пустую схему.
		var body struct {
			Title       string              `json:"title"`
			Description string              `json:"description"`
			Category    string              `json:"category"`
			Schema      *models.FieldSchema `json:"customFields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		actor := ActorFromContext(r.Context())
		updated, err := s.inventories.Update(r.Context(), actor, id, service.InventoryPatch{
			Title:       body.Title,
			Description: body.Description,
			Category:    body.Category,
			Schema:      body.Schema,
		})
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		actor := ActorFromContext(r.Context())
		if err := s.inventories.Delete(r.Context(), actor, id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "inventory deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleItems(w http.ResponseWriter, r *http.Request, inventoryID string) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.items.ListByInventory(r.Context(), inventoryID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var item models.Item
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		item.InventoryID = inventoryID
		if strings.TrimSpace(item.ItemID) == "" {
			// Клиенты обычно шлют свой itemId (millis); генерируем в том же
			// формате, когда поле опущено.
			item.ItemID = strconv.FormatInt(time.Now().UnixMilli(), 10)
		}

		actor := ActorFromContext(r.Context())
		if err := s.items.Create(r.Context(), actor, &item); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, &item)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleItem(w http.ResponseWriter, r *http.Request, inventoryID, id string) {
	switch r.Method {
	case http.MethodPut:
		var item models.Item
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		item.ID = id
		item.InventoryID = inventoryID

		actor := ActorFromContext(r.Context())
		updated, err := s.items.Update(r.Context(), actor, &item)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		actor := ActorFromContext(r.Context())
		if err := s.items.Delete(r.Context(), actor, inventoryID, id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "item deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) exportInventory(w http.ResponseWriter, r *http.Request, id string) {
	inv, err := s.inventories.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	items, err := s.items.ListByInventory(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", inv.ID+".xlsx"))
	if err := s.exporter.Stream(w, inv, items); err != nil {
		s.logger.Error().Err(err).Str("inventory_id", id).Msg("export failed")
	}
}

// writeServiceError maps service and store errors onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "authorization required")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(endpointLabel(r))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel collapses ids so the metric label stays low-cardinality.
func endpointLabel(r *http.Request) string {
	path := r.URL.Path
	switch {
	case path == "/healthz":
		return "healthz"
	case path == "/api/inventories":
		return "inventories"
	case strings.HasPrefix(path, "/api/inventories/"):
		rest := strings.Trim(strings.TrimPrefix(path, "/api/inventories/"), "/")
		segments := strings.Split(rest, "/")
		switch segments[0] {
		case "my", "stats", "search":
			return segments[0]
		}
		if len(segments) > 1 {
			return "inventory_" + segments[1]
		}
		return "inventory"
	default:
		return "other"
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"message": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
