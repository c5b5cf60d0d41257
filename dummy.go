package server

import (
	"fmt"
	"math"
	"time"
)

// dummyState is the server-owned bot. It reuses the Player shape so
// broadcasts and state sync treat it like any other entity, but it never
// accepts input and never takes damage.
type dummyState struct {
	Player
	spawnedAt time.Time
	center    Vec3
}

// SpawnDummy adds the bot to a lobby. Spawning twice is a no-op.
func (h *Hub) SpawnDummy(code string) error {
	normalized := NormalizeLobbyCode(code)

	h.mu.Lock()
	defer h.mu.Unlock()
	lobby, ok := h.lobbies[normalized]
	if !ok {
		return fmt.Errorf("spawn dummy in %q: %w", normalized, ErrLobbyNotFound)
	}
	if lobby.dummy != nil {
		return nil
	}
	knife, _ := h.weapons.Get(3)
	center := Vec3{X: spawnPosition.X, Y: dummyHeight, Z: spawnPosition.Z}
	lobby.dummy = &dummyState{
		Player: Player{
			ID:              DummyPlayerID,
			Name:            DummyPlayerName,
			Position:        Vec3{X: center.X + dummyCircleRadius, Y: dummyHeight, Z: center.Z},
			Health:          PlayerMaxHealth,
			MaxHealth:       PlayerMaxHealth,
			CurrentWeaponID: knife.ID,
			CurrentAmmo:     knife.Ammo,
			MaxAmmo:         knife.Ammo,
		},
		spawnedAt: h.clock.Now(),
		center:    center,
	}
	return nil
}

// DummyUpdate is one bot movement to broadcast.
type DummyUpdate struct {
	LobbyCode  string
	Position   Vec3
	Recipients []Recipient
}

// AdvanceDummies moves every bot along its circle, parameterized by elapsed
// time since spawn so the path is deterministic regardless of tick jitter.
func (h *Hub) AdvanceDummies(now time.Time) []DummyUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()

	var updates []DummyUpdate
	for code, lobby := range h.lobbies {
		if lobby.dummy == nil || len(lobby.addrs) == 0 {
			continue
		}
		angle := now.Sub(lobby.dummy.spawnedAt).Seconds() * dummyAngularSpeed
		lobby.dummy.Position = Vec3{
			X: lobby.dummy.center.X + dummyCircleRadius*math.Cos(angle),
			Y: dummyHeight,
			Z: lobby.dummy.center.Z + dummyCircleRadius*math.Sin(angle),
		}
		lobby.dummy.Rotation = Vec3{Y: -angle * 180 / math.Pi}
		updates = append(updates, DummyUpdate{
			LobbyCode:  code,
			Position:   lobby.dummy.Position,
			Recipients: lobby.recipients(0),
		})
	}
	return updates
}
