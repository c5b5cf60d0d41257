package server

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"gungame/server/logging"
)

// NormalizeLobbyCode canonicalizes a lobby code for lookup and storage.
// Codes are case-insensitive on the wire and stored uppercased.
func NormalizeLobbyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateLobby registers a new empty lobby. The code must be unique
// case-insensitively.
func (h *Hub) CreateLobby(code, scene string, maxPlayers int) (LobbyInfo, error) {
	normalized := NormalizeLobbyCode(code)
	if normalized == "" {
		return LobbyInfo{}, fmt.Errorf("create lobby: empty code")
	}
	if maxPlayers <= 0 {
		return LobbyInfo{}, fmt.Errorf("create lobby %q: max players must be positive", normalized)
	}
	if scene == "" {
		scene = DefaultScene
	}

	h.mu.Lock()
	if _, exists := h.lobbies[normalized]; exists {
		h.mu.Unlock()
		return LobbyInfo{}, fmt.Errorf("create lobby %q: %w", normalized, ErrLobbyExists)
	}
	lobby := &lobbyState{
		code:       normalized,
		scene:      scene,
		maxPlayers: maxPlayers,
		createdAt:  h.clock.Now(),
		players:    make(map[PlayerID]*playerState),
		addrs:      make(map[PlayerID]net.Addr),
	}
	h.lobbies[normalized] = lobby
	info := lobby.info()
	h.mu.Unlock()

	h.publish(EventLobbyCreated, logging.CategoryLobby, normalized, lobbyRef(normalized), map[string]any{
		"scene":       scene,
		"max_players": maxPlayers,
	})
	return info, nil
}

// JoinLobby allocates the next player id and inserts a default-state player:
// full health, no weapon, empty magazine. Returns the post-join lobby view.
func (h *Hub) JoinLobby(code, playerName string) (PlayerID, LobbyInfo, error) {
	normalized := NormalizeLobbyCode(code)

	h.mu.Lock()
	lobby, ok := h.lobbies[normalized]
	if !ok {
		h.mu.Unlock()
		return 0, LobbyInfo{}, fmt.Errorf("join lobby %q: %w", normalized, ErrLobbyNotFound)
	}
	if len(lobby.players) >= lobby.maxPlayers {
		h.mu.Unlock()
		return 0, LobbyInfo{}, fmt.Errorf("join lobby %q: %w", normalized, ErrLobbyFull)
	}

	id := PlayerID(h.nextPlayerID.Add(1))
	now := h.clock.Now()
	lobby.players[id] = &playerState{
		Player: Player{
			ID:        id,
			Name:      playerName,
			Position:  spawnPosition,
			Health:    PlayerMaxHealth,
			MaxHealth: PlayerMaxHealth,
		},
		lastActivity: now,
	}
	info := lobby.info()
	h.mu.Unlock()

	h.publish(EventPlayerJoined, logging.CategoryLobby, normalized, playerRef(id), map[string]any{
		"name": playerName,
	})
	return id, info, nil
}

// LeaveResult reports whether a leave removed anything and who should be
// told about it.
type LeaveResult struct {
	Removed    bool
	Recipients []Recipient
}

// LeaveLobby removes the player and its endpoint binding. Leaving twice, or
// leaving a lobby that is already gone, is a no-op.
func (h *Hub) LeaveLobby(code string, playerID PlayerID) LeaveResult {
	normalized := NormalizeLobbyCode(code)

	h.mu.Lock()
	lobby, ok := h.lobbies[normalized]
	if !ok {
		h.mu.Unlock()
		return LeaveResult{}
	}
	if _, ok := lobby.players[playerID]; !ok {
		h.mu.Unlock()
		return LeaveResult{}
	}
	delete(lobby.players, playerID)
	delete(lobby.addrs, playerID)
	remaining := lobby.recipients(0)
	h.mu.Unlock()

	h.publish(EventPlayerLeft, logging.CategoryLobby, normalized, playerRef(playerID), nil)
	return LeaveResult{Removed: true, Recipients: remaining}
}

// BindResult carries what the UDP join reply needs: the player's name and
// the other members to notify.
type BindResult struct {
	PlayerName string
	Others     []Recipient
}

// BindPlayer records the UDP endpoint a player speaks from. The player must
// already have joined over the control plane.
func (h *Hub) BindPlayer(code string, playerID PlayerID, addr net.Addr) (BindResult, error) {
	normalized := NormalizeLobbyCode(code)

	h.mu.Lock()
	defer h.mu.Unlock()
	lobby, ok := h.lobbies[normalized]
	if !ok {
		return BindResult{}, fmt.Errorf("bind player %d: %w", playerID, ErrLobbyNotFound)
	}
	player, ok := lobby.players[playerID]
	if !ok {
		return BindResult{}, fmt.Errorf("bind player %d in %q: %w", playerID, normalized, ErrPlayerNotFound)
	}
	lobby.touchLocked(player, addr, h.clock.Now())
	return BindResult{PlayerName: player.Name, Others: lobby.recipients(playerID)}, nil
}

// TouchPlayer refreshes the endpoint binding and activity stamp without any
// other effect. Keepalives land here.
func (h *Hub) TouchPlayer(code string, playerID PlayerID, addr net.Addr) bool {
	normalized := NormalizeLobbyCode(code)

	h.mu.Lock()
	defer h.mu.Unlock()
	lobby, ok := h.lobbies[normalized]
	if !ok {
		return false
	}
	player, ok := lobby.players[playerID]
	if !ok {
		return false
	}
	lobby.touchLocked(player, addr, h.clock.Now())
	return true
}

// PositionResult names the lobby the player was found in and who should see
// the movement.
type PositionResult struct {
	LobbyCode  string
	Recipients []Recipient
}

// UpdatePosition writes the client's self-reported transform through without
// plausibility checks. Position packets carry no lobby code, so the player
// is located by id.
func (h *Hub) UpdatePosition(playerID PlayerID, position, rotation Vec3, addr net.Addr) (PositionResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, lobby := range h.lobbies {
		player, ok := lobby.players[playerID]
		if !ok {
			continue
		}
		player.Position = position
		player.Rotation = rotation
		lobby.touchLocked(player, addr, h.clock.Now())
		return PositionResult{LobbyCode: lobby.code, Recipients: lobby.recipients(playerID)}, true
	}
	return PositionResult{}, false
}

// Eviction is one player removed by the inactivity sweep, with the members
// left behind to notify. The notification is identical to an explicit leave.
type Eviction struct {
	LobbyCode  string
	PlayerID   PlayerID
	Recipients []Recipient
}

type CleanupResult struct {
	Evictions      []Eviction
	RemovedLobbies []string
}

// CleanupInactive evicts players silent for longer than timeout, then
// removes lobbies left empty past their grace period. A lobby younger than
// gracePeriod survives even when empty so creation cannot race the sweep.
func (h *Hub) CleanupInactive(now time.Time, timeout, gracePeriod time.Duration) CleanupResult {
	var result CleanupResult

	h.mu.Lock()
	for code, lobby := range h.lobbies {
		for id, player := range lobby.players {
			if now.Sub(player.lastActivity) <= timeout {
				continue
			}
			delete(lobby.players, id)
			delete(lobby.addrs, id)
			result.Evictions = append(result.Evictions, Eviction{
				LobbyCode:  code,
				PlayerID:   id,
				Recipients: lobby.recipients(0),
			})
		}
		if len(lobby.players) == 0 && now.Sub(lobby.createdAt) > gracePeriod {
			delete(h.lobbies, code)
			result.RemovedLobbies = append(result.RemovedLobbies, code)
		}
	}
	h.mu.Unlock()

	for _, ev := range result.Evictions {
		h.publish(EventPlayerEvicted, logging.CategoryLobby, ev.LobbyCode, playerRef(ev.PlayerID), nil)
	}
	for _, code := range result.RemovedLobbies {
		h.publish(EventLobbyRemoved, logging.CategoryLobby, code, lobbyRef(code), nil)
	}
	return result
}

// Lobby returns a read-only view of one lobby.
func (h *Hub) Lobby(code string) (LobbyInfo, bool) {
	normalized := NormalizeLobbyCode(code)
	h.mu.RLock()
	defer h.mu.RUnlock()
	lobby, ok := h.lobbies[normalized]
	if !ok {
		return LobbyInfo{}, false
	}
	return lobby.info(), true
}

// Lobbies lists every lobby, ordered by code.
func (h *Hub) Lobbies() []LobbyInfo {
	h.mu.RLock()
	infos := make([]LobbyInfo, 0, len(h.lobbies))
	for _, lobby := range h.lobbies {
		infos = append(infos, lobby.info())
	}
	h.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Code < infos[j].Code })
	return infos
}
