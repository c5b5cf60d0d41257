package udp

import (
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"gungame/server"
	"gungame/server/internal/telemetry"
	"gungame/server/internal/transport"
	"gungame/server/internal/transport/proto"
	"gungame/server/logging"
	"gungame/server/weapons"
)

// memorySender records every outbound datagram per endpoint.
type memorySender struct {
	mu      sync.Mutex
	packets map[string][][]byte
}

func newMemorySender() *memorySender {
	return &memorySender{packets: make(map[string][][]byte)}
}

func (s *memorySender) WriteTo(data []byte, addr net.Addr) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.packets[addr.String()] = append(s.packets[addr.String()], cp)
	return len(data), nil
}

// typesFor lists the message types delivered to an endpoint, in order.
func (s *memorySender) typesFor(t *testing.T, addr net.Addr) []string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	var types []string
	for _, data := range s.packets[addr.String()] {
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			t.Fatalf("malformed outbound packet %q: %v", data, err)
		}
		types = append(types, envelope.Type)
	}
	return types
}

func (s *memorySender) lastOfType(t *testing.T, addr net.Addr, msgType string) []byte {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	var found []byte
	for _, data := range s.packets[addr.String()] {
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			t.Fatalf("malformed outbound packet %q: %v", data, err)
		}
		if envelope.Type == msgType {
			found = data
		}
	}
	if found == nil {
		t.Fatalf("no %s message delivered to %s", msgType, addr)
	}
	return found
}

type clockStub struct {
	now time.Time
}

func (c *clockStub) Now() time.Time { return c.now }

var _ logging.Clock = (*clockStub)(nil)

type fixture struct {
	hub     *server.Hub
	handler *Handler
	sender  *memorySender
	clock   *clockStub
}

func newFixture(t *testing.T, db *weapons.Database) *fixture {
	t.Helper()
	clock := &clockStub{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	hub := server.NewHub(server.HubConfig{Weapons: db, Clock: clock})
	sender := newMemorySender()
	counters := &telemetry.Counters{}
	bc := transport.NewBroadcaster(sender, telemetry.LoggerFunc(t.Logf), counters)
	return &fixture{
		hub:     hub,
		handler: NewHandler(hub, bc, telemetry.LoggerFunc(t.Logf), counters),
		sender:  sender,
		clock:   clock,
	}
}

func (f *fixture) dispatch(t *testing.T, addr net.Addr, msg any) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal %T: %v", msg, err)
	}
	f.handler.Dispatch(data, addr)
}

func addrFor(port int) net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func TestJoinDispatch(t *testing.T) {
	f := newFixture(t, nil)
	f.hub.CreateLobby("test", "", 4)
	alice, _, _ := f.hub.JoinLobby("test", "alice")
	bob, _, _ := f.hub.JoinLobby("test", "bob")
	aliceAddr, bobAddr := addrFor(1000), addrFor(2000)

	f.dispatch(t, aliceAddr, map[string]any{"type": "join", "lobby_code": "test", "player_id": alice})
	if got := f.sender.typesFor(t, aliceAddr); len(got) != 1 || got[0] != proto.TypeWelcome {
		t.Fatalf("expected a single welcome for alice, got %v", got)
	}

	f.dispatch(t, bobAddr, map[string]any{"type": "join", "lobby_code": "test", "player_id": bob})
	if got := f.sender.typesFor(t, bobAddr); len(got) != 1 || got[0] != proto.TypeWelcome {
		t.Fatalf("expected a single welcome for bob, got %v", got)
	}

	data := f.sender.lastOfType(t, aliceAddr, proto.TypePlayerJoined)
	var joined proto.PlayerJoined
	if err := json.Unmarshal(data, &joined); err != nil {
		t.Fatalf("decode player_joined: %v", err)
	}
	if joined.Player.ID != bob || joined.Player.Name != "bob" {
		t.Fatalf("unexpected player_joined payload: %+v", joined)
	}
}

func TestJoinUnknownSessionGetsError(t *testing.T) {
	f := newFixture(t, nil)
	addr := addrFor(1000)

	f.dispatch(t, addr, map[string]any{"type": "join", "lobby_code": "nope", "player_id": 42})
	if got := f.sender.typesFor(t, addr); len(got) != 1 || got[0] != proto.TypeError {
		t.Fatalf("expected an error reply, got %v", got)
	}
}

func TestMalformedPacketIsDropped(t *testing.T) {
	f := newFixture(t, nil)
	f.hub.CreateLobby("test", "", 4)
	id, _, _ := f.hub.JoinLobby("test", "alice")
	before, _ := f.hub.StateSync("test")

	f.handler.Dispatch([]byte("{not json"), addrFor(1000))
	f.dispatch(t, addrFor(1000), map[string]any{"type": "warp_speed", "player_id": id})

	after, _ := f.hub.StateSync("test")
	if len(before) != len(after) || before[0] != after[0] {
		t.Fatalf("bad packets mutated state: before=%+v after=%+v", before, after)
	}
	if len(f.sender.packets) != 0 {
		t.Fatalf("bad packets must not be answered, got %v", f.sender.packets)
	}
}

func TestPositionUpdateGoesToOthersOnly(t *testing.T) {
	f := newFixture(t, nil)
	f.hub.CreateLobby("test", "", 4)
	alice, _, _ := f.hub.JoinLobby("test", "alice")
	bob, _, _ := f.hub.JoinLobby("test", "bob")
	aliceAddr, bobAddr := addrFor(1000), addrFor(2000)
	f.dispatch(t, aliceAddr, map[string]any{"type": "join", "lobby_code": "test", "player_id": alice})
	f.dispatch(t, bobAddr, map[string]any{"type": "join", "lobby_code": "test", "player_id": bob})

	f.dispatch(t, aliceAddr, map[string]any{
		"type": "position_update", "player_id": alice,
		"position": map[string]float64{"x": 5, "y": 1, "z": -2},
		"rotation": map[string]float64{"y": 45},
	})

	data := f.sender.lastOfType(t, bobAddr, proto.TypePositionUpdate)
	var update proto.PositionUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		t.Fatalf("decode position_update: %v", err)
	}
	if update.PlayerID != alice || update.Position.X != 5 || update.Rotation.Y != 45 {
		t.Fatalf("unexpected position_update: %+v", update)
	}

	for _, msgType := range f.sender.typesFor(t, aliceAddr) {
		if msgType == proto.TypePositionUpdate {
			t.Fatal("sender must not receive its own movement")
		}
	}
}

func TestDamageDispatch(t *testing.T) {
	f := newFixture(t, nil)
	f.hub.CreateLobby("test", "", 4)
	alice, _, _ := f.hub.JoinLobby("test", "alice")
	bob, _, _ := f.hub.JoinLobby("test", "bob")
	aliceAddr, bobAddr := addrFor(1000), addrFor(2000)
	f.dispatch(t, aliceAddr, map[string]any{"type": "join", "lobby_code": "test", "player_id": alice})
	f.dispatch(t, bobAddr, map[string]any{"type": "join", "lobby_code": "test", "player_id": bob})

	f.dispatch(t, aliceAddr, map[string]any{
		"type": "damage", "lobby_code": "test",
		"player_id": alice, "target_id": bob, "damage": 30,
	})

	data := f.sender.lastOfType(t, bobAddr, proto.TypePlayerDamaged)
	var damaged proto.PlayerDamaged
	if err := json.Unmarshal(data, &damaged); err != nil {
		t.Fatalf("decode player_damaged: %v", err)
	}
	if damaged.PlayerID != bob || damaged.Damage != 30 || damaged.AttackerID != alice {
		t.Fatalf("unexpected player_damaged: %+v", damaged)
	}

	// Out-of-bounds damage is dropped without a broadcast.
	f.dispatch(t, aliceAddr, map[string]any{
		"type": "damage", "lobby_code": "test",
		"player_id": alice, "target_id": bob, "damage": 9000,
	})
	count := 0
	for _, msgType := range f.sender.typesFor(t, bobAddr) {
		if msgType == proto.TypePlayerDamaged {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one player_damaged, got %d", count)
	}
}

func TestRequestStateRepliesToSenderOnly(t *testing.T) {
	f := newFixture(t, nil)
	f.hub.CreateLobby("test", "", 4)
	alice, _, _ := f.hub.JoinLobby("test", "alice")
	bob, _, _ := f.hub.JoinLobby("test", "bob")
	aliceAddr, bobAddr := addrFor(1000), addrFor(2000)
	f.dispatch(t, aliceAddr, map[string]any{"type": "join", "lobby_code": "test", "player_id": alice})
	f.dispatch(t, bobAddr, map[string]any{"type": "join", "lobby_code": "test", "player_id": bob})

	f.dispatch(t, aliceAddr, map[string]any{"type": "request_state", "lobby_code": "test", "player_id": alice})

	data := f.sender.lastOfType(t, aliceAddr, proto.TypeStateSync)
	var sync proto.StateSync
	if err := json.Unmarshal(data, &sync); err != nil {
		t.Fatalf("decode state_sync: %v", err)
	}
	if len(sync.Players) != 2 {
		t.Fatalf("expected both players in the snapshot, got %+v", sync.Players)
	}
	for _, msgType := range f.sender.typesFor(t, bobAddr) {
		if msgType == proto.TypeStateSync {
			t.Fatal("state_sync must only go to the requester")
		}
	}
}

func TestLeaveDispatch(t *testing.T) {
	f := newFixture(t, nil)
	f.hub.CreateLobby("test", "", 4)
	alice, _, _ := f.hub.JoinLobby("test", "alice")
	bob, _, _ := f.hub.JoinLobby("test", "bob")
	aliceAddr, bobAddr := addrFor(1000), addrFor(2000)
	f.dispatch(t, aliceAddr, map[string]any{"type": "join", "lobby_code": "test", "player_id": alice})
	f.dispatch(t, bobAddr, map[string]any{"type": "join", "lobby_code": "test", "player_id": bob})

	f.dispatch(t, aliceAddr, map[string]any{"type": "leave", "lobby_code": "test", "player_id": alice})

	data := f.sender.lastOfType(t, bobAddr, proto.TypePlayerLeft)
	var left proto.PlayerLeft
	if err := json.Unmarshal(data, &left); err != nil {
		t.Fatalf("decode player_left: %v", err)
	}
	if left.PlayerID != alice {
		t.Fatalf("unexpected player_left: %+v", left)
	}

	if info, _ := f.hub.Lobby("test"); info.PlayerCount != 1 {
		t.Fatalf("expected one player left, got %d", info.PlayerCount)
	}
}

// TestCombatRoundTrip walks the full flow: two players meet over the lobby,
// one empties a six round magazine, reloads, and gets its ammo back.
func TestCombatRoundTrip(t *testing.T) {
	db, err := weapons.New([]weapons.Weapon{
		{ID: 1, Name: "Test Pistol", Damage: 10, FireRate: 4.0, Range: 50, ReloadTime: 1.0, Ammo: 6},
	})
	if err != nil {
		t.Fatalf("weapons.New: %v", err)
	}
	f := newFixture(t, db)

	if _, err := f.hub.CreateLobby("test", "", 2); err != nil {
		t.Fatalf("CreateLobby: %v", err)
	}
	alice, _, err := f.hub.JoinLobby("test", "A")
	if err != nil {
		t.Fatalf("join A: %v", err)
	}
	bob, _, err := f.hub.JoinLobby("test", "B")
	if err != nil {
		t.Fatalf("join B: %v", err)
	}

	aliceAddr, bobAddr := addrFor(1000), addrFor(2000)
	f.dispatch(t, aliceAddr, map[string]any{"type": "join", "lobby_code": "test", "player_id": alice})
	f.dispatch(t, bobAddr, map[string]any{"type": "join", "lobby_code": "test", "player_id": bob})

	// A learns about B joining; both can pull a state snapshot.
	f.sender.lastOfType(t, aliceAddr, proto.TypePlayerJoined)
	f.dispatch(t, bobAddr, map[string]any{"type": "request_state", "lobby_code": "test", "player_id": bob})
	f.sender.lastOfType(t, bobAddr, proto.TypeStateSync)

	f.dispatch(t, aliceAddr, map[string]any{"type": "weapon_switch", "lobby_code": "test", "player_id": alice, "weapon_id": 1})
	f.sender.lastOfType(t, bobAddr, proto.TypeWeaponSwitched)

	for shot := 0; shot < 6; shot++ {
		f.dispatch(t, aliceAddr, map[string]any{"type": "shoot", "lobby_code": "test", "player_id": alice})
		f.clock.now = f.clock.now.Add(300 * time.Millisecond)
	}
	if got := f.playerAmmo(t, "test", alice); got != 0 {
		t.Fatalf("expected an empty magazine, got %d", got)
	}

	// The seventh trigger pull does nothing.
	f.dispatch(t, aliceAddr, map[string]any{"type": "shoot", "lobby_code": "test", "player_id": alice})
	if got := f.playerAmmo(t, "test", alice); got != 0 {
		t.Fatalf("empty magazine must not go negative, got %d", got)
	}

	f.dispatch(t, aliceAddr, map[string]any{"type": "reload", "lobby_code": "test", "player_id": alice})
	f.sender.lastOfType(t, bobAddr, proto.TypeReloadStarted)

	done := f.hub.AdvanceReloads(f.clock.now.Add(time.Second))
	if len(done) != 1 || done[0].Ammo != 6 {
		t.Fatalf("expected the reload to finish with 6 rounds, got %+v", done)
	}
	if got := f.playerAmmo(t, "test", alice); got != 6 {
		t.Fatalf("expected a full magazine after reload, got %d", got)
	}
}

func (f *fixture) playerAmmo(t *testing.T, code string, id server.PlayerID) int {
	t.Helper()
	players, err := f.hub.StateSync(code)
	if err != nil {
		t.Fatalf("StateSync: %v", err)
	}
	for _, p := range players {
		if p.ID == id {
			return p.CurrentAmmo
		}
	}
	t.Fatalf("player %d missing from snapshot", id)
	return 0
}

func TestKeepaliveStavesOffEviction(t *testing.T) {
	f := newFixture(t, nil)
	f.hub.CreateLobby("test", "", 4)
	alice, _, _ := f.hub.JoinLobby("test", "alice")
	addr := addrFor(1000)
	f.dispatch(t, addr, map[string]any{"type": "join", "lobby_code": "test", "player_id": alice})

	f.clock.now = f.clock.now.Add(10 * time.Second)
	f.dispatch(t, addr, map[string]any{"type": "keepalive", "lobby_code": "test", "player_id": alice})
	f.clock.now = f.clock.now.Add(10 * time.Second)

	result := f.hub.CleanupInactive(f.clock.now, 15*time.Second, time.Minute)
	if len(result.Evictions) != 0 {
		t.Fatalf("keepalive should have kept alice alive, got %+v", result.Evictions)
	}
}
