// Package udp runs the data-plane read loop and dispatches tagged JSON
// datagrams onto the lobby and combat operations.
package udp

import (
	"context"
	"encoding/json"
	"log"
	"net"

	"gungame/server"
	"gungame/server/internal/telemetry"
	"gungame/server/internal/transport"
	"gungame/server/internal/transport/proto"
)

const maxDatagramSize = 64 * 1024

// Handler turns inbound datagrams into domain calls and fans the resulting
// notifications back out. Malformed or semantically invalid packets are
// logged and dropped; nothing inbound can stop the loop.
type Handler struct {
	hub      *server.Hub
	bc       *transport.Broadcaster
	logger   telemetry.Logger
	counters *telemetry.Counters
}

func NewHandler(hub *server.Hub, bc *transport.Broadcaster, logger telemetry.Logger, counters *telemetry.Counters) *Handler {
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	return &Handler{hub: hub, bc: bc, logger: logger, counters: counters}
}

// Serve reads datagrams until the context is cancelled. Cancellation closes
// the socket to unblock the read.
func (h *Handler) Serve(ctx context.Context, conn net.PacketConn) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		h.Dispatch(data, addr)
	}
}

// Dispatch handles one datagram. Exported so the websocket gateway and
// tests can feed messages through the same path the socket does.
func (h *Handler) Dispatch(data []byte, addr net.Addr) {
	h.counters.Add("packets_received", 1)

	var msg proto.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.drop(addr, "malformed datagram: %v", err)
		return
	}

	switch msg.Type {
	case proto.TypeJoin:
		h.handleJoin(msg, addr)

	case proto.TypeLeave:
		result := h.hub.LeaveLobby(msg.LobbyCode, msg.PlayerID)
		if result.Removed {
			h.bc.Broadcast(proto.PlayerLeft{Type: proto.TypePlayerLeft, PlayerID: msg.PlayerID}, result.Recipients)
		}

	case proto.TypePositionUpdate:
		if msg.Position == nil || msg.Rotation == nil {
			h.drop(addr, "position_update from %d missing transform", msg.PlayerID)
			return
		}
		result, ok := h.hub.UpdatePosition(msg.PlayerID, *msg.Position, *msg.Rotation, addr)
		if !ok {
			h.drop(addr, "position_update from unknown player %d", msg.PlayerID)
			return
		}
		h.bc.Broadcast(proto.PositionUpdate{
			Type:     proto.TypePositionUpdate,
			PlayerID: msg.PlayerID,
			Position: *msg.Position,
			Rotation: *msg.Rotation,
		}, result.Recipients)

	case proto.TypeShoot:
		// Ammo changes surface through the periodic state sync; a fired
		// shot needs no extra broadcast.
		if _, err := h.hub.Shoot(msg.LobbyCode, msg.PlayerID); err != nil {
			h.drop(addr, "shoot: %v", err)
		}

	case proto.TypeReload:
		result, err := h.hub.StartReload(msg.LobbyCode, msg.PlayerID)
		if err != nil {
			h.drop(addr, "reload: %v", err)
			return
		}
		if result.Started {
			h.bc.Broadcast(proto.ReloadStarted{Type: proto.TypeReloadStarted, PlayerID: msg.PlayerID}, result.Recipients)
		}

	case proto.TypeWeaponSwitch:
		result, err := h.hub.SwitchWeapon(msg.LobbyCode, msg.PlayerID, msg.WeaponID)
		if err != nil {
			h.drop(addr, "weapon_switch: %v", err)
			return
		}
		h.bc.Broadcast(proto.WeaponSwitched{
			Type:     proto.TypeWeaponSwitched,
			PlayerID: msg.PlayerID,
			WeaponID: result.WeaponID,
		}, result.Recipients)

	case proto.TypeDamage:
		result, err := h.hub.TakeDamage(msg.LobbyCode, msg.TargetID, msg.Damage, msg.PlayerID)
		if err != nil {
			h.drop(addr, "damage: %v", err)
			return
		}
		h.bc.Broadcast(proto.PlayerDamaged{
			Type:       proto.TypePlayerDamaged,
			PlayerID:   msg.TargetID,
			Damage:     msg.Damage,
			AttackerID: msg.PlayerID,
		}, result.Recipients)

	case proto.TypeRequestState:
		if !h.hub.TouchPlayer(msg.LobbyCode, msg.PlayerID, addr) {
			h.drop(addr, "request_state from unknown player %d", msg.PlayerID)
			return
		}
		players, err := h.hub.StateSync(msg.LobbyCode)
		if err != nil {
			h.drop(addr, "request_state: %v", err)
			return
		}
		h.bc.Send(proto.StateSync{Type: proto.TypeStateSync, Players: players}, addr)

	case proto.TypeKeepalive:
		if !h.hub.TouchPlayer(msg.LobbyCode, msg.PlayerID, addr) {
			h.drop(addr, "keepalive from unknown player %d", msg.PlayerID)
		}

	default:
		h.drop(addr, "unknown message type %q", msg.Type)
	}
}

// handleJoin binds the sender's endpoint to the player and answers with a
// welcome. This is the one place the data plane replies with an error: a
// client with a stale session needs to know it is talking to nobody.
func (h *Handler) handleJoin(msg proto.ClientMessage, addr net.Addr) {
	result, err := h.hub.BindPlayer(msg.LobbyCode, msg.PlayerID, addr)
	if err != nil {
		h.counters.Add("join_rejected", 1)
		h.logger.Printf("udp: join rejected for %s: %v", addr, err)
		h.bc.Send(proto.ErrorMessage{Type: proto.TypeError, Message: "unknown lobby or player"}, addr)
		return
	}
	h.bc.Send(proto.Welcome{Type: proto.TypeWelcome}, addr)
	h.bc.Broadcast(proto.PlayerJoined{
		Type:   proto.TypePlayerJoined,
		Player: server.PlayerRef{ID: msg.PlayerID, Name: result.PlayerName},
	}, result.Others)
}

func (h *Handler) drop(addr net.Addr, format string, args ...any) {
	h.counters.Add("packets_dropped", 1)
	h.logger.Printf("udp: drop from %s: "+format, append([]any{addr}, args...)...)
}
