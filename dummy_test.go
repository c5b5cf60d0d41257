package server

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestSpawnDummy(t *testing.T) {
	hub, _ := newTestHub(t)
	hub.CreateLobby("test", "", 4)

	if err := hub.SpawnDummy("test"); err != nil {
		t.Fatalf("SpawnDummy: %v", err)
	}
	if err := hub.SpawnDummy("test"); err != nil {
		t.Fatalf("second spawn should be a no-op, got %v", err)
	}
	if err := hub.SpawnDummy("nope"); !errors.Is(err, ErrLobbyNotFound) {
		t.Fatalf("expected ErrLobbyNotFound, got %v", err)
	}
}

func TestAdvanceDummiesSkipsLobbiesWithoutListeners(t *testing.T) {
	hub, clock := newTestHub(t)
	hub.CreateLobby("test", "", 4)
	hub.SpawnDummy("test")

	clock.advance(time.Second)
	if updates := hub.AdvanceDummies(clock.Now()); len(updates) != 0 {
		t.Fatalf("no bound member, expected no updates, got %+v", updates)
	}
}

func TestAdvanceDummiesFollowsCircle(t *testing.T) {
	hub, clock := newTestHub(t)
	hub.CreateLobby("test", "", 4)
	hub.SpawnDummy("test")
	id, _, _ := hub.JoinLobby("test", "watcher")
	hub.BindPlayer("test", id, testAddr(1000))

	var prev Vec3
	for i := 0; i < 5; i++ {
		clock.advance(200 * time.Millisecond)
		updates := hub.AdvanceDummies(clock.Now())
		if len(updates) != 1 {
			t.Fatalf("tick %d: expected one update, got %+v", i, updates)
		}
		pos := updates[0].Position

		radius := math.Hypot(pos.X-spawnPosition.X, pos.Z-spawnPosition.Z)
		if math.Abs(radius-dummyCircleRadius) > 1e-9 {
			t.Fatalf("tick %d: expected radius %v, got %v", i, dummyCircleRadius, radius)
		}
		if pos.Y != dummyHeight {
			t.Fatalf("tick %d: expected height %v, got %v", i, dummyHeight, pos.Y)
		}
		if i > 0 && pos == prev {
			t.Fatalf("tick %d: bot did not move", i)
		}
		prev = pos
	}
}
