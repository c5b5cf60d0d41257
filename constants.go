package server

const (
	// PlayerMaxHealth is granted to every player at join.
	PlayerMaxHealth = 100

	// MaxDamagePerHit bounds a single damage report; anything above it is
	// treated as a malformed or cheated packet and rejected.
	MaxDamagePerHit = 100

	// DefaultScene applies when a create request omits the scene label.
	DefaultScene = "world"
)

// Dummy bot parameters. The bot follows a circle on the XZ plane around the
// spawn point, at a fixed height.
const (
	DummyPlayerID     PlayerID = 999
	DummyPlayerName            = "DummyBot"
	dummyCircleRadius          = 3.0
	dummyAngularSpeed          = 0.5
	dummyHeight                = 1.0
)

var spawnPosition = Vec3{X: 0, Y: 1, Z: 0}
