package server

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gungame/server/logging"
	"gungame/server/weapons"
)

// ShootResult reports whether a shot was accepted. Fired speaks only to the
// fire-rate/ammo/reload gate; hit resolution is a separate concern answered
// by the world query.
type ShootResult struct {
	Fired    bool
	Target   PlayerID
	HitFound bool
}

// Shoot runs the fire gate for one trigger pull: the player must be alive,
// hold a known weapon, not be reloading, have ammo (when the weapon uses a
// magazine), and be past the fire-rate cooldown. A rejected shot is a normal
// outcome, not an error.
func (h *Hub) Shoot(code string, playerID PlayerID) (ShootResult, error) {
	normalized := NormalizeLobbyCode(code)

	h.mu.Lock()
	lobby, ok := h.lobbies[normalized]
	if !ok {
		h.mu.Unlock()
		return ShootResult{}, fmt.Errorf("shoot in %q: %w", normalized, ErrLobbyNotFound)
	}
	player, ok := lobby.players[playerID]
	if !ok {
		h.mu.Unlock()
		return ShootResult{}, fmt.Errorf("shoot by %d in %q: %w", playerID, normalized, ErrPlayerNotFound)
	}

	now := h.clock.Now()
	lobby.touchLocked(player, nil, now)

	weapon, haveWeapon := h.weapons.Get(player.CurrentWeaponID)
	switch {
	case !player.IsAlive(),
		player.CurrentWeaponID == weapons.None || !haveWeapon,
		player.IsReloading,
		weapon.HasMagazine() && player.CurrentAmmo == 0,
		!player.lastShot.IsZero() && now.Sub(player.lastShot) < weapon.Cooldown():
		h.mu.Unlock()
		return ShootResult{}, nil
	}

	if weapon.HasMagazine() {
		player.CurrentAmmo--
	}
	player.lastShot = now

	origin := [3]float64{player.Position.X, player.Position.Y, player.Position.Z}
	dir := forwardVector(player.Rotation)
	hit, hitFound := h.world.Hitscan(origin, dir, weapon.Range)
	h.mu.Unlock()

	h.publish(EventShotFired, logging.CategoryCombat, normalized, playerRef(playerID), map[string]any{
		"weapon_id": weapon.ID,
	})

	result := ShootResult{Fired: true}
	if hitFound {
		result.Target = PlayerID(hit.PlayerID)
		result.HitFound = true
	}
	return result, nil
}

// forwardVector derives the aim direction from the player's Euler rotation.
// Yaw is rotation about Y; pitch about X; degrees, matching the client.
func forwardVector(rotation Vec3) [3]float64 {
	yaw := rotation.Y * math.Pi / 180
	pitch := rotation.X * math.Pi / 180
	return [3]float64{
		-math.Sin(yaw) * math.Cos(pitch),
		math.Sin(pitch),
		-math.Cos(yaw) * math.Cos(pitch),
	}
}

// DamageResult carries the post-damage health, whether this call crossed
// into death, and the members to notify.
type DamageResult struct {
	Health     int
	Died       bool
	Recipients []Recipient
}

// TakeDamage applies a damage report to a player. Amounts outside
// [1, MaxDamagePerHit] are rejected outright. Death is the transition of
// health reaching zero and is reported exactly once per crossing; further
// damage against a dead player changes nothing.
func (h *Hub) TakeDamage(code string, playerID PlayerID, amount int, attackerID PlayerID) (DamageResult, error) {
	if amount < 1 || amount > MaxDamagePerHit {
		return DamageResult{}, fmt.Errorf("damage %d: %w", amount, ErrInvalidDamage)
	}
	normalized := NormalizeLobbyCode(code)

	h.mu.Lock()
	lobby, ok := h.lobbies[normalized]
	if !ok {
		h.mu.Unlock()
		return DamageResult{}, fmt.Errorf("damage in %q: %w", normalized, ErrLobbyNotFound)
	}
	player, ok := lobby.players[playerID]
	if !ok {
		h.mu.Unlock()
		return DamageResult{}, fmt.Errorf("damage to %d in %q: %w", playerID, normalized, ErrPlayerNotFound)
	}
	died := player.ApplyDamage(amount)
	result := DamageResult{Health: player.Health, Died: died, Recipients: lobby.recipients(0)}
	h.mu.Unlock()

	h.publish(EventPlayerDamaged, logging.CategoryCombat, normalized, playerRef(attackerID), map[string]any{
		"target": playerID,
		"amount": amount,
	})
	if died {
		h.publish(EventPlayerDied, logging.CategoryCombat, normalized, playerRef(playerID), map[string]any{
			"attacker": attackerID,
		})
	}
	return result, nil
}

// ReloadResult reports whether a reload actually began. Reloading while
// already reloading, with a full magazine, or with a magazineless weapon is
// a no-op.
type ReloadResult struct {
	Started    bool
	Recipients []Recipient
}

func (h *Hub) StartReload(code string, playerID PlayerID) (ReloadResult, error) {
	normalized := NormalizeLobbyCode(code)

	h.mu.Lock()
	lobby, ok := h.lobbies[normalized]
	if !ok {
		h.mu.Unlock()
		return ReloadResult{}, fmt.Errorf("reload in %q: %w", normalized, ErrLobbyNotFound)
	}
	player, ok := lobby.players[playerID]
	if !ok {
		h.mu.Unlock()
		return ReloadResult{}, fmt.Errorf("reload by %d in %q: %w", playerID, normalized, ErrPlayerNotFound)
	}

	now := h.clock.Now()
	lobby.touchLocked(player, nil, now)

	weapon, haveWeapon := h.weapons.Get(player.CurrentWeaponID)
	if !haveWeapon || !weapon.HasMagazine() || player.IsReloading || player.CurrentAmmo >= player.MaxAmmo {
		h.mu.Unlock()
		return ReloadResult{}, nil
	}

	player.IsReloading = true
	player.reloadStart = now
	result := ReloadResult{Started: true, Recipients: lobby.recipients(0)}
	h.mu.Unlock()

	h.publish(EventReloadStarted, logging.CategoryCombat, normalized, playerRef(playerID), nil)
	return result, nil
}

// ReloadCompletion is one reload that finished this tick.
type ReloadCompletion struct {
	LobbyCode  string
	PlayerID   PlayerID
	Ammo       int
	Recipients []Recipient
}

// AdvanceReloads completes every reload whose duration has elapsed by now.
// It is the sole driver of reload completion and must run on a fixed
// cadence; calling it again with the same clock is a no-op.
func (h *Hub) AdvanceReloads(now time.Time) []ReloadCompletion {
	var completed []ReloadCompletion

	h.mu.Lock()
	for code, lobby := range h.lobbies {
		for id, player := range lobby.players {
			if !player.IsReloading {
				continue
			}
			weapon, ok := h.weapons.Get(player.CurrentWeaponID)
			if !ok {
				// Weapon vanished mid-reload; nothing to refill.
				player.IsReloading = false
				continue
			}
			if now.Sub(player.reloadStart) < weapon.ReloadDuration() {
				continue
			}
			player.CurrentAmmo = player.MaxAmmo
			player.IsReloading = false
			completed = append(completed, ReloadCompletion{
				LobbyCode:  code,
				PlayerID:   id,
				Ammo:       player.CurrentAmmo,
				Recipients: lobby.recipients(0),
			})
		}
	}
	h.mu.Unlock()

	for _, done := range completed {
		h.publish(EventReloadCompleted, logging.CategoryCombat, done.LobbyCode, playerRef(done.PlayerID), map[string]any{
			"ammo": done.Ammo,
		})
	}
	return completed
}

type SwitchResult struct {
	WeaponID   weapons.ID
	Recipients []Recipient
}

// SwitchWeapon equips a weapon from the database, cancelling any in-flight
// reload. Switching always grants a full magazine; leftover ammo is not
// carried across weapons.
func (h *Hub) SwitchWeapon(code string, playerID PlayerID, weaponID weapons.ID) (SwitchResult, error) {
	normalized := NormalizeLobbyCode(code)

	h.mu.Lock()
	lobby, ok := h.lobbies[normalized]
	if !ok {
		h.mu.Unlock()
		return SwitchResult{}, fmt.Errorf("switch weapon in %q: %w", normalized, ErrLobbyNotFound)
	}
	player, ok := lobby.players[playerID]
	if !ok {
		h.mu.Unlock()
		return SwitchResult{}, fmt.Errorf("switch weapon by %d in %q: %w", playerID, normalized, ErrPlayerNotFound)
	}
	weapon, ok := h.weapons.Get(weaponID)
	if !ok {
		h.mu.Unlock()
		return SwitchResult{}, fmt.Errorf("switch to weapon %d: %w", weaponID, ErrWeaponNotFound)
	}

	lobby.touchLocked(player, nil, h.clock.Now())
	player.IsReloading = false
	player.CurrentWeaponID = weapon.ID
	player.MaxAmmo = weapon.Ammo
	player.CurrentAmmo = weapon.Ammo
	result := SwitchResult{WeaponID: weapon.ID, Recipients: lobby.recipients(0)}
	h.mu.Unlock()

	h.publish(EventWeaponSwitched, logging.CategoryCombat, normalized, playerRef(playerID), map[string]any{
		"weapon_id": weapon.ID,
	})
	return result, nil
}

// StateSync builds the reconciliation snapshot for one lobby, ordered by
// player id.
func (h *Hub) StateSync(code string) ([]PlayerSync, error) {
	normalized := NormalizeLobbyCode(code)

	h.mu.RLock()
	lobby, ok := h.lobbies[normalized]
	if !ok {
		h.mu.RUnlock()
		return nil, fmt.Errorf("state sync for %q: %w", normalized, ErrLobbyNotFound)
	}
	players := lobby.syncLocked()
	h.mu.RUnlock()
	return players, nil
}

func (l *lobbyState) syncLocked() []PlayerSync {
	players := make([]PlayerSync, 0, len(l.players))
	for _, p := range l.players {
		players = append(players, p.sync())
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

// LobbySync pairs one lobby's snapshot with its broadcast set.
type LobbySync struct {
	Code       string
	Players    []PlayerSync
	Recipients []Recipient
}

// SyncLobbies snapshots every lobby for the periodic state-sync task.
func (h *Hub) SyncLobbies() []LobbySync {
	h.mu.RLock()
	defer h.mu.RUnlock()
	syncs := make([]LobbySync, 0, len(h.lobbies))
	for code, lobby := range h.lobbies {
		if len(lobby.players) == 0 {
			continue
		}
		syncs = append(syncs, LobbySync{
			Code:       code,
			Players:    lobby.syncLocked(),
			Recipients: lobby.recipients(0),
		})
	}
	return syncs
}
