package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mahaj/teamsync/pkg/auth"
	"github.com/mahaj/teamsync/pkg/notify"
	"github.com/mahaj/teamsync/pkg/realtime"
	"github.com/mahaj/teamsync/pkg/store"
)

type socketSettings struct {
	pongWait       time.Duration
	writeWait      time.Duration
	maxMessageSize int64
	sendBuffer     int
}

func (s socketSettings) pingPeriod() time.Duration {
	return (s.pongWait * 9) / 10
}

// Hub owns the realtime components of one gateway process.
type Hub struct {
	log        *slog.Logger
	gate       *auth.Gate
	registry   *realtime.Registry
	router     *realtime.Router
	presence   *realtime.Presence
	dispatcher *realtime.Dispatcher
	settings   socketSettings
}

// NewHub wires the registry, router, presence coordinator and chat handler.
// observer may be nil when no presence mirror is configured.
func NewHub(log *slog.Logger, gate *auth.Gate, messages store.MessageStore, oracle realtime.MembershipOracle, observer realtime.PresenceObserver, settings socketSettings) *Hub {
	registry := realtime.NewRegistry(log)
	router := realtime.NewRouter(log)
	presence := realtime.NewPresence(log, registry, router, oracle, observer)
	chat := realtime.NewChat(log, messages, oracle, router)
	return &Hub{
		log:        log,
		gate:       gate,
		registry:   registry,
		router:     router,
		presence:   presence,
		dispatcher: realtime.NewDispatcher(log, presence, chat),
		settings:   settings,
	}
}

func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.serveWs)
	mux.HandleFunc("GET /healthz", h.health)
	return mux
}

// RelayNotice broadcasts a notice from the bus into its team room.
func (h *Hub) RelayNotice(n notify.Notice) {
	delivered := h.router.Broadcast(n.TeamID, n.Event, n.Notification)
	h.log.Debug("Relayed notice", "team_id", n.TeamID, "event", n.Event, "delivered", delivered)
}

// CloseAll closes every live socket; their read pumps run the normal cleanup.
func (h *Hub) CloseAll() {
	for _, conn := range h.registry.All() {
		_ = conn.Close()
	}
}

func (h *Hub) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{
		"connections": h.registry.Len(),
		"rooms":       h.router.RoomCount(),
	})
}
