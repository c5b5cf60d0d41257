package app

import (
	"testing"

	"gungame/server"
)

func TestCombatStateChanged(t *testing.T) {
	base := []server.PlayerSync{
		{ID: 1, Health: 100, MaxHealth: 100, CurrentWeaponID: 1, CurrentAmmo: 20, MaxAmmo: 20},
		{ID: 2, Health: 80, MaxHealth: 100},
	}
	clone := func() []server.PlayerSync {
		out := make([]server.PlayerSync, len(base))
		copy(out, base)
		return out
	}

	if combatStateChanged(base, clone()) {
		t.Fatal("identical snapshots must not be flagged")
	}

	moved := clone()
	moved[0].Position = server.Vec3{X: 42}
	moved[1].Rotation = server.Vec3{Y: 180}
	if combatStateChanged(base, moved) {
		t.Fatal("movement alone must not trigger a sync")
	}

	cases := []struct {
		name   string
		mutate func([]server.PlayerSync)
	}{
		{"health", func(s []server.PlayerSync) { s[0].Health = 60 }},
		{"ammo", func(s []server.PlayerSync) { s[0].CurrentAmmo = 19 }},
		{"weapon", func(s []server.PlayerSync) { s[1].CurrentWeaponID = 3 }},
		{"reloading", func(s []server.PlayerSync) { s[0].IsReloading = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cur := clone()
			tc.mutate(cur)
			if !combatStateChanged(base, cur) {
				t.Fatal("combat change not detected")
			}
		})
	}

	if !combatStateChanged(base, base[:1]) {
		t.Fatal("roster change not detected")
	}
	if !combatStateChanged(nil, base) {
		t.Fatal("first snapshot must always broadcast")
	}
}
