// Package proto defines the tagged JSON datagrams shared by the UDP and
// WebSocket transports. Every message carries a "type" discriminator;
// everything else is snake_case to match the client.
package proto

import (
	"gungame/server"
	"gungame/server/weapons"
)

// Client→server message types.
const (
	TypeJoin           = "join"
	TypeLeave          = "leave"
	TypePositionUpdate = "position_update"
	TypeShoot          = "shoot"
	TypeReload         = "reload"
	TypeWeaponSwitch   = "weapon_switch"
	TypeDamage         = "damage"
	TypeRequestState   = "request_state"
	TypeKeepalive      = "keepalive"
)

// Server→client message types.
const (
	TypeWelcome           = "welcome"
	TypeError             = "error"
	TypePlayerJoined      = "player_joined"
	TypePlayerLeft        = "player_left"
	TypeWeaponSwitched    = "weapon_switched"
	TypeReloadStarted     = "reload_started"
	TypeReloadFinished    = "reload_finished"
	TypePlayerDamaged     = "player_damaged"
	TypeStateSync         = "state_sync"
	TypeServerDummyUpdate = "server_dummy_update"
)

// ClientMessage is the inbound envelope. One struct covers every client
// message type; fields irrelevant to a given type are simply absent.
type ClientMessage struct {
	Type      string          `json:"type"`
	LobbyCode string          `json:"lobby_code,omitempty"`
	PlayerID  server.PlayerID `json:"player_id,omitempty"`
	Position  *server.Vec3    `json:"position,omitempty"`
	Rotation  *server.Vec3    `json:"rotation,omitempty"`
	WeaponID  weapons.ID      `json:"weapon_id,omitempty"`
	TargetID  server.PlayerID `json:"target_id,omitempty"`
	Damage    int             `json:"damage,omitempty"`
}

type Welcome struct {
	Type string `json:"type"`
}

// ErrorMessage is sent only in reply to a join naming an unknown lobby or
// player; without it a client cannot tell a bad session from packet loss.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type PlayerJoined struct {
	Type   string           `json:"type"`
	Player server.PlayerRef `json:"player"`
}

type PlayerLeft struct {
	Type     string          `json:"type"`
	PlayerID server.PlayerID `json:"player_id"`
}

type PositionUpdate struct {
	Type     string          `json:"type"`
	PlayerID server.PlayerID `json:"player_id"`
	Position server.Vec3     `json:"position"`
	Rotation server.Vec3     `json:"rotation"`
}

type WeaponSwitched struct {
	Type     string          `json:"type"`
	PlayerID server.PlayerID `json:"player_id"`
	WeaponID weapons.ID      `json:"weapon_id"`
}

type ReloadStarted struct {
	Type     string          `json:"type"`
	PlayerID server.PlayerID `json:"player_id"`
}

type ReloadFinished struct {
	Type     string          `json:"type"`
	PlayerID server.PlayerID `json:"player_id"`
	Ammo     int             `json:"current_ammo"`
}

type PlayerDamaged struct {
	Type       string          `json:"type"`
	PlayerID   server.PlayerID `json:"player_id"`
	Damage     int             `json:"damage"`
	AttackerID server.PlayerID `json:"attacker_id"`
}

type StateSync struct {
	Type    string              `json:"type"`
	Players []server.PlayerSync `json:"players"`
}

type ServerDummyUpdate struct {
	Type     string      `json:"type"`
	Position server.Vec3 `json:"position"`
}
