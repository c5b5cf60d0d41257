package sim

// Hit identifies a player struck by a hitscan trace.
type Hit struct {
	PlayerID uint64
	Distance float64
}

// WorldQuery answers spatial questions about the combat scene. The server
// consults it for shot resolution and movement validation; implementations
// own their geometry and must be safe for concurrent use.
type WorldQuery interface {
	// LineOfSight reports whether an unobstructed segment exists between
	// the two points.
	LineOfSight(from, to [3]float64) bool
	// Hitscan traces a ray from origin along dir up to maxRange and
	// returns the closest player hit, if any.
	Hitscan(origin, dir [3]float64, maxRange float64) (Hit, bool)
	// Collides reports whether the position intersects scene geometry.
	Collides(pos [3]float64) bool
}

// StubWorld is an empty scene: everything is visible, nothing is hit, and no
// position collides. It stands in until real scene geometry is loaded.
type StubWorld struct{}

func (StubWorld) LineOfSight(from, to [3]float64) bool { return true }

func (StubWorld) Hitscan(origin, dir [3]float64, maxRange float64) (Hit, bool) {
	return Hit{}, false
}

func (StubWorld) Collides(pos [3]float64) bool { return false }
