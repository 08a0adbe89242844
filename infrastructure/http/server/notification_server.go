package server

import (
	"approval-notify/contract"
	"approval-notify/domain"
	"approval-notify/domain/event"
	"approval-notify/errors"
	"approval-notify/infrastructure/websocket"
	"approval-notify/observability"
	"approval-notify/services"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const serviceName = "approval-notify"

type SessionServer interface {
	Serve(ctx context.Context, conn contract.Connection, identity domain.Identity, role domain.Role) error
}

type StatsProvider interface {
	Stats() domain.Stats
}

// NotificationServer exposes the WebSocket entry point and the operator endpoints.
type NotificationServer struct {
	log           *slog.Logger
	session       SessionServer
	stats         StatsProvider
	notifications services.INotificationService
	process       observability.IProcessMonitor
	upgrader      *gorilla.Upgrader
	readLimit     int64
	now           func() time.Time
}

func NewNotificationServer(
	log *slog.Logger,
	session SessionServer,
	stats StatsProvider,
	notifications services.INotificationService,
	process observability.IProcessMonitor,
	allowedOrigins []string,
	readLimit int64,
) *NotificationServer {
	return &NotificationServer{
		log:           log,
		session:       session,
		stats:         stats,
		notifications: notifications,
		process:       process,
		upgrader: &gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		readLimit: readLimit,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *NotificationServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{user_id}", s.Connect)
	mux.HandleFunc("GET /stats/websocket", s.GetStats)
	mux.HandleFunc("GET /health", s.Health)
	mux.HandleFunc("POST /notify", s.Notify)
	return mux
}

// Connect upgrades the request and blocks for the lifetime of the client session.
// The identity comes from the path and the role from the "role" query parameter.
func (s *NotificationServer) Connect(w http.ResponseWriter, r *http.Request) {
	identity := domain.Identity(strings.TrimSpace(r.PathValue("user_id")))
	if identity == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "user_id is required"})
		return
	}
	role := domain.Role(r.URL.Query().Get("role"))

	conn := websocket.NewConn(s.upgrader, w, r, s.readLimit)
	if err := s.session.Serve(r.Context(), conn, identity, role); err != nil {
		s.log.Warn("WebSocket session ended with error", "user_id", identity, "error", err)
	}
}

func (s *NotificationServer) GetStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Stats())
}

type healthResponse struct {
	Status               string                      `json:"status"`
	Service              string                      `json:"service"`
	WebsocketConnections int                         `json:"websocket_connections"`
	Timestamp            string                      `json:"timestamp"`
	Process              *observability.ProcessStats `json:"process,omitempty"`
}

func (s *NotificationServer) Health(w http.ResponseWriter, _ *http.Request) {
	response := healthResponse{
		Status:               "healthy",
		Service:              serviceName,
		WebsocketConnections: s.stats.Stats().TotalConnections,
		Timestamp:            event.FormatTimestamp(s.now()),
	}
	if s.process != nil {
		if self, err := s.process.Snapshot(); err == nil {
			response.Process = lo.ToPtr(self)
		} else {
			s.log.Debug("Process stats unavailable", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, response)
}

type notifyRequest struct {
	Target  domain.Target `json:"target"`
	Message event.Generic `json:"message"`
}

// Notify lets an out-of-process collaborator queue a notification.
func (s *NotificationServer) Notify(w http.ResponseWriter, r *http.Request) {
	var body notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	err := s.notifications.Publish(event.Notification{Message: body.Message, Target: body.Target})
	if err != nil {
		writeJSON(w, errors.MapToHTTPStatus(err), map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	allowAll := lo.Contains(allowed, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowAll || origin == "" {
			return true
		}
		return lo.Contains(allowed, origin)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
