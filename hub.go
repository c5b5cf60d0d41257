package server

import (
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"gungame/server/internal/sim"
	"gungame/server/internal/telemetry"
	"gungame/server/logging"
	"gungame/server/weapons"
)

// Hub owns every lobby and player on this server. All state lives behind one
// reader/writer lock; domain operations hold it for a single call and never
// across a socket write.
type Hub struct {
	mu           sync.RWMutex
	lobbies      map[string]*lobbyState
	nextPlayerID atomic.Uint64

	weapons   *weapons.Database
	world     sim.WorldQuery
	clock     logging.Clock
	logger    telemetry.Logger
	publisher logging.Publisher

	startedAt time.Time
}

// lobbyState is one named session: its players and the UDP endpoints they
// last spoke from. Lobbies never share players.
type lobbyState struct {
	code       string
	scene      string
	maxPlayers int
	createdAt  time.Time
	players    map[PlayerID]*playerState
	addrs      map[PlayerID]net.Addr
	dummy      *dummyState
}

// HubConfig carries the hub's collaborators. Zero-value fields get safe
// defaults so tests can construct a hub with only what they exercise.
type HubConfig struct {
	Weapons   *weapons.Database
	World     sim.WorldQuery
	Clock     logging.Clock
	Logger    telemetry.Logger
	Publisher logging.Publisher
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.Weapons == nil {
		cfg.Weapons = weapons.Defaults()
	}
	if cfg.World == nil {
		cfg.World = sim.StubWorld{}
	}
	if cfg.Clock == nil {
		cfg.Clock = logging.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.WrapLogger(log.Default())
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	return &Hub{
		lobbies:   make(map[string]*lobbyState),
		weapons:   cfg.Weapons,
		world:     cfg.World,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		publisher: cfg.Publisher,
		startedAt: cfg.Clock.Now(),
	}
}

// Weapons exposes the immutable weapon database.
func (h *Hub) Weapons() *weapons.Database {
	return h.weapons
}

func (l *lobbyState) info() LobbyInfo {
	players := make([]PlayerRef, 0, len(l.players))
	for _, p := range l.players {
		players = append(players, PlayerRef{ID: p.ID, Name: p.Name})
	}
	return LobbyInfo{
		Code:        l.code,
		PlayerCount: len(l.players),
		MaxPlayers:  l.maxPlayers,
		Players:     players,
		Scene:       l.scene,
	}
}

// recipients lists every bound member of the lobby, optionally excluding one
// player. Eviction and broadcast fan-out both build on this.
func (l *lobbyState) recipients(exclude PlayerID) []Recipient {
	out := make([]Recipient, 0, len(l.addrs))
	for id, addr := range l.addrs {
		if id == exclude {
			continue
		}
		out = append(out, Recipient{PlayerID: id, Addr: addr})
	}
	return out
}

// touchLocked refreshes a player's endpoint binding and activity stamp.
// Called for every inbound packet so NAT rebinds and client restarts
// self-heal.
func (l *lobbyState) touchLocked(p *playerState, addr net.Addr, now time.Time) {
	p.lastActivity = now
	if addr != nil {
		l.addrs[p.ID] = addr
	}
}

// DiagnosticsSnapshot summarizes the hub for the diagnostics endpoint.
type DiagnosticsSnapshot struct {
	LobbyCount  int       `json:"lobby_count"`
	PlayerCount int       `json:"player_count"`
	StartedAt   time.Time `json:"started_at"`
}

func (h *Hub) Diagnostics() DiagnosticsSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snap := DiagnosticsSnapshot{LobbyCount: len(h.lobbies), StartedAt: h.startedAt}
	for _, lobby := range h.lobbies {
		snap.PlayerCount += len(lobby.players)
	}
	return snap
}
