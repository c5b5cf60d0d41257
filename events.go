package server

import (
	"context"
	"strconv"

	"gungame/server/logging"
)

const (
	EventLobbyCreated    logging.EventType = "lobby_created"
	EventLobbyRemoved    logging.EventType = "lobby_removed"
	EventPlayerJoined    logging.EventType = "player_joined"
	EventPlayerLeft      logging.EventType = "player_left"
	EventPlayerEvicted   logging.EventType = "player_evicted"
	EventShotFired       logging.EventType = "shot_fired"
	EventPlayerDamaged   logging.EventType = "player_damaged"
	EventPlayerDied      logging.EventType = "player_died"
	EventReloadStarted   logging.EventType = "reload_started"
	EventReloadCompleted logging.EventType = "reload_completed"
	EventWeaponSwitched  logging.EventType = "weapon_switched"
)

func playerRef(id PlayerID) logging.EntityRef {
	return logging.EntityRef{ID: strconv.FormatUint(uint64(id), 10), Kind: logging.EntityKindPlayer}
}

func lobbyRef(code string) logging.EntityRef {
	return logging.EntityRef{ID: code, Kind: logging.EntityKindLobby}
}

func (h *Hub) publish(eventType logging.EventType, category string, lobby string, actor logging.EntityRef, payload any) {
	if h.publisher == nil {
		return
	}
	h.publisher.Publish(context.Background(), logging.Event{
		Type:     eventType,
		Actor:    actor,
		Lobby:    lobby,
		Severity: logging.SeverityInfo,
		Category: category,
		Payload:  payload,
	})
}
