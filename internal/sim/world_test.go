package sim

import "testing"

func TestStubWorldIsEmpty(t *testing.T) {
	var world StubWorld

	if !world.LineOfSight([3]float64{0, 0, 0}, [3]float64{10, 0, 0}) {
		t.Fatal("empty scene always has line of sight")
	}
	if _, ok := world.Hitscan([3]float64{0, 1, 0}, [3]float64{0, 0, -1}, 100); ok {
		t.Fatal("empty scene never reports a hit")
	}
	if world.Collides([3]float64{5, 5, 5}) {
		t.Fatal("empty scene has no geometry to collide with")
	}
}
