package app

import (
	"context"
	"time"

	"gungame/server"
	"gungame/server/internal/transport"
	"gungame/server/internal/transport/proto"
)

// runSweep periodically evicts silent players and expired lobbies. Evicted
// players are announced with the same player_left the explicit leave path
// sends.
func runSweep(ctx context.Context, hub *server.Hub, bc *transport.Broadcaster, cfg Config) error {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			result := hub.CleanupInactive(now, cfg.InactivityTimeout, cfg.LobbyGracePeriod)
			for _, ev := range result.Evictions {
				bc.Broadcast(proto.PlayerLeft{Type: proto.TypePlayerLeft, PlayerID: ev.PlayerID}, ev.Recipients)
			}
		}
	}
}

// runReloadTicks drives reload completion. Nothing else finishes a reload.
func runReloadTicks(ctx context.Context, hub *server.Hub, bc *transport.Broadcaster, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			for _, done := range hub.AdvanceReloads(now) {
				bc.Broadcast(proto.ReloadFinished{
					Type:     proto.TypeReloadFinished,
					PlayerID: done.PlayerID,
					Ammo:     done.Ammo,
				}, done.Recipients)
			}
		}
	}
}

func runDummyBots(ctx context.Context, hub *server.Hub, bc *transport.Broadcaster, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			for _, update := range hub.AdvanceDummies(now) {
				bc.Broadcast(proto.ServerDummyUpdate{
					Type:     proto.TypeServerDummyUpdate,
					Position: update.Position,
				}, update.Recipients)
			}
		}
	}
}

// runStateSync broadcasts the reconciliation snapshot per lobby, but only
// when combat state moved since the last broadcast. Position and rotation
// churn constantly through position_update and is excluded from the
// comparison.
func runStateSync(ctx context.Context, hub *server.Hub, bc *transport.Broadcaster, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	previous := make(map[string][]server.PlayerSync)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			seen := make(map[string]struct{})
			for _, sync := range hub.SyncLobbies() {
				seen[sync.Code] = struct{}{}
				if !combatStateChanged(previous[sync.Code], sync.Players) {
					continue
				}
				previous[sync.Code] = sync.Players
				bc.Broadcast(proto.StateSync{Type: proto.TypeStateSync, Players: sync.Players}, sync.Recipients)
			}
			for code := range previous {
				if _, ok := seen[code]; !ok {
					delete(previous, code)
				}
			}
		}
	}
}

// combatStateChanged compares two snapshots on the fields clients must not
// drift on. Both snapshots are ordered by player id.
func combatStateChanged(prev, cur []server.PlayerSync) bool {
	if len(prev) != len(cur) {
		return true
	}
	for i := range cur {
		p, c := prev[i], cur[i]
		if p.ID != c.ID ||
			p.Health != c.Health ||
			p.MaxHealth != c.MaxHealth ||
			p.CurrentWeaponID != c.CurrentWeaponID ||
			p.CurrentAmmo != c.CurrentAmmo ||
			p.MaxAmmo != c.MaxAmmo ||
			p.IsReloading != c.IsReloading {
			return true
		}
	}
	return false
}
