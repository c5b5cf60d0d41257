package server

import "errors"

var (
	// ErrLobbyExists reports a create with a code already in use.
	ErrLobbyExists = errors.New("lobby code already exists")
	// ErrLobbyNotFound reports an operation against an unknown lobby code.
	ErrLobbyNotFound = errors.New("lobby not found")
	// ErrLobbyFull reports a join against a lobby at capacity.
	ErrLobbyFull = errors.New("lobby is full")
	// ErrPlayerNotFound reports an operation against a player id absent
	// from the named lobby.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrWeaponNotFound reports a switch to a weapon id absent from the
	// database.
	ErrWeaponNotFound = errors.New("weapon not found")
	// ErrInvalidDamage reports a damage amount outside the accepted bounds.
	ErrInvalidDamage = errors.New("invalid damage amount")
)
