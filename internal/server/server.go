package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"updates_notifier/internal/digest"
	"updates_notifier/internal/logger"
	"updates_notifier/internal/models"
	"updates_notifier/internal/notify"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultDigestDays = 7

// DigestService формирует и публикует дайджест за окно.
type DigestService interface {
	Generate(ctx context.Context, days int, now time.Time) (digest.Result, error)
}

// Dispatcher доставляет уведомления по принятым событиям.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []models.ChangeEvent) []notify.Outcome
}

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server хранит зависимости HTTP-обработчиков.
type Server struct {
	digest     DigestService
	dispatcher Dispatcher
	store      Pinger
	log        *logger.Entry
}

// NewServer создаёт новый экземпляр Server с переданными сервисами.
func NewServer(digestSvc DigestService, dispatcher Dispatcher, store Pinger) *Server {
	return &Server{
		digest:     digestSvc,
		dispatcher: dispatcher,
		store:      store,
		log:        logger.WithComponent("server"),
	}
}

// Routes регистрирует обработчики и возвращает mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/digest", s.GenerateDigest)
	mux.HandleFunc("POST /api/notify", s.Notify)
	mux.HandleFunc("GET /health", s.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// HealthCheck отвечает 200 OK, если хранилище доступно, иначе 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("OK"))
}

// GenerateDigest запускает формирование дайджеста. Тело запроса —
// {"days": N}, по умолчанию 7. Результат повторяет статус запуска:
// 200 при успехе, 404 при пустом окне, 500 при сбое.
func (s *Server) GenerateDigest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Days int `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Days == 0 {
		req.Days = defaultDigestDays
	}
	if req.Days < 0 {
		http.Error(w, "days must be positive", http.StatusBadRequest)
		return
	}

	res, err := s.digest.Generate(r.Context(), req.Days, time.Now())
	if err != nil {
		s.log.Errorf("Digest generation failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, digest.Result{
			Status:  digest.StatusFailed,
			Message: "digest generation failed",
		})
		return
	}

	writeJSON(w, res.Status, res)
}

// Notify принимает пакет сырых событий изменений, фильтрует его и
// доставляет уведомления по принятым событиям. Ответ содержит итог по
// каждому обработанному элементу.
func (s *Server) Notify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Records []models.ChangeEvent `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	accepted := notify.FilterEvents(req.Records)
	outcomes := s.dispatcher.Dispatch(r.Context(), accepted)

	writeJSON(w, http.StatusOK, map[string]any{
		"received": len(req.Records),
		"accepted": len(accepted),
		"outcomes": outcomes,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
