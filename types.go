package server

import (
	"net"
	"time"

	"gungame/server/weapons"
)

// PlayerID identifies a player for the lifetime of the process. Ids are
// allocated monotonically and never reused.
type PlayerID uint64

// Vec3 is a position or Euler rotation carried on the wire.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Player is the wire-visible shape of a player. Clients must treat every
// field as authoritative.
type Player struct {
	ID              PlayerID   `json:"id"`
	Name            string     `json:"name"`
	Position        Vec3       `json:"position"`
	Rotation        Vec3       `json:"rotation"`
	Health          int        `json:"health"`
	MaxHealth       int        `json:"max_health"`
	CurrentWeaponID weapons.ID `json:"current_weapon_id"`
	CurrentAmmo     int        `json:"current_ammo"`
	MaxAmmo         int        `json:"max_ammo"`
	IsReloading     bool       `json:"is_reloading"`
}

// playerState embeds the wire struct and carries the private bookkeeping the
// domain needs to enforce fire rate, reload timing, and inactivity eviction.
type playerState struct {
	Player
	lastShot     time.Time
	reloadStart  time.Time
	lastActivity time.Time
}

func (p *playerState) snapshot() Player {
	return p.Player
}

// Damageable is the capability surface the combat rules require from
// anything that can be shot.
type Damageable interface {
	// ApplyDamage clamps health at zero and reports whether this call was
	// the transition from alive to dead.
	ApplyDamage(amount int) (died bool)
	// Heal clamps health at max health.
	Heal(amount int)
	IsAlive() bool
}

func (p *playerState) ApplyDamage(amount int) bool {
	if amount <= 0 || p.Health <= 0 {
		return false
	}
	p.Health -= amount
	if p.Health <= 0 {
		p.Health = 0
		return true
	}
	return false
}

func (p *playerState) Heal(amount int) {
	if amount <= 0 {
		return
	}
	p.Health += amount
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
}

func (p *playerState) IsAlive() bool {
	return p.Health > 0
}

// PlayerRef is the compact roster entry used by lobby listings and join
// notifications.
type PlayerRef struct {
	ID   PlayerID `json:"id"`
	Name string   `json:"name"`
}

// PlayerSync is one row of the periodic state-sync snapshot.
type PlayerSync struct {
	ID              PlayerID   `json:"id"`
	Position        Vec3       `json:"position"`
	Rotation        Vec3       `json:"rotation"`
	Health          int        `json:"health"`
	MaxHealth       int        `json:"max_health"`
	CurrentWeaponID weapons.ID `json:"current_weapon_id"`
	CurrentAmmo     int        `json:"current_ammo"`
	MaxAmmo         int        `json:"max_ammo"`
	IsReloading     bool       `json:"is_reloading"`
}

func (p *playerState) sync() PlayerSync {
	return PlayerSync{
		ID:              p.ID,
		Position:        p.Position,
		Rotation:        p.Rotation,
		Health:          p.Health,
		MaxHealth:       p.MaxHealth,
		CurrentWeaponID: p.CurrentWeaponID,
		CurrentAmmo:     p.CurrentAmmo,
		MaxAmmo:         p.MaxAmmo,
		IsReloading:     p.IsReloading,
	}
}

// LobbyInfo is the read-only view of a lobby returned by the control plane.
// The transport layer supplements it with the advertised UDP endpoint.
type LobbyInfo struct {
	Code        string      `json:"code"`
	PlayerCount int         `json:"player_count"`
	MaxPlayers  int         `json:"max_players"`
	Players     []PlayerRef `json:"players"`
	Scene       string      `json:"scene"`
}

// Recipient names one bound endpoint a domain result should be delivered to.
// The domain decides who gets told; the transport decides how.
type Recipient struct {
	PlayerID PlayerID
	Addr     net.Addr
}
