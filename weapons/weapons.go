package weapons

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// ID identifies a weapon in the database. Zero is reserved for "no weapon".
type ID uint32

// None is the weapon id of a player that has not picked up a weapon yet.
const None ID = 0

// Weapon holds the immutable stats for one weapon. The JSON shape matches the
// client's weapon.json so both sides can be authored from the same file.
type Weapon struct {
	ID         ID      `json:"id" jsonschema:"title=Weapon id,description=Unique non-zero identifier referenced by wire messages"`
	Name       string  `json:"name" jsonschema:"minLength=1,description=Display name shown by the client"`
	Damage     int     `json:"damage" jsonschema:"minimum=1,description=Health subtracted per landed hit"`
	FireRate   float64 `json:"fire_rate" jsonschema:"exclusiveMinimum=0,description=Maximum accepted shots per second"`
	Range      float64 `json:"range" jsonschema:"exclusiveMinimum=0,description=Maximum hitscan distance in world units"`
	ReloadTime float64 `json:"reload_time" jsonschema:"minimum=0,description=Seconds a reload takes to complete"`
	Ammo       int     `json:"ammo" jsonschema:"minimum=0,description=Magazine capacity; zero means the weapon has no magazine"`
}

// HasMagazine reports whether the weapon consumes ammo. Capacity zero marks
// melee weapons that never reload.
func (w Weapon) HasMagazine() bool {
	return w.Ammo > 0
}

// Cooldown returns the minimum time between two accepted shots.
func (w Weapon) Cooldown() time.Duration {
	if w.FireRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / w.FireRate)
}

// ReloadDuration returns the reload time as a duration.
func (w Weapon) ReloadDuration() time.Duration {
	return time.Duration(w.ReloadTime * float64(time.Second))
}

// Database is the immutable weapon lookup table, loaded once at startup and
// shared read-only across the whole process.
type Database struct {
	byID map[ID]Weapon
}

// Defaults returns the built-in weapon table used when no definitions file is
// configured.
func Defaults() *Database {
	db, err := New([]Weapon{
		{ID: 1, Name: "Golden Friend", Damage: 20, FireRate: 4.0, Range: 100.0, ReloadTime: 1.0, Ammo: 20},
		{ID: 2, Name: "Prototype", Damage: 30, FireRate: 2.0, Range: 150.0, ReloadTime: 1.5, Ammo: 8},
		{ID: 3, Name: "Combat Knife", Damage: 50, FireRate: 1.5, Range: 3.0, ReloadTime: 0, Ammo: 0},
	})
	if err != nil {
		panic(fmt.Sprintf("weapons: invalid built-in table: %v", err))
	}
	return db
}

// New validates the given definitions and builds a database from them.
func New(defs []Weapon) (*Database, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("weapons: empty definition list")
	}
	byID := make(map[ID]Weapon, len(defs))
	for _, w := range defs {
		if w.ID == None {
			return nil, fmt.Errorf("weapons: %q uses reserved id 0", w.Name)
		}
		if _, dup := byID[w.ID]; dup {
			return nil, fmt.Errorf("weapons: duplicate id %d", w.ID)
		}
		if w.Name == "" {
			return nil, fmt.Errorf("weapons: id %d has no name", w.ID)
		}
		if w.Damage <= 0 {
			return nil, fmt.Errorf("weapons: %q has non-positive damage", w.Name)
		}
		if w.FireRate <= 0 {
			return nil, fmt.Errorf("weapons: %q has non-positive fire rate", w.Name)
		}
		if w.ReloadTime < 0 || w.Ammo < 0 || w.Range <= 0 {
			return nil, fmt.Errorf("weapons: %q has out-of-range stats", w.Name)
		}
		byID[w.ID] = w
	}
	return &Database{byID: byID}, nil
}

// Load reads a JSON definitions file (an array of weapons) and builds the
// database from it.
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("weapons: read %s: %w", path, err)
	}
	var defs []Weapon
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("weapons: parse %s: %w", path, err)
	}
	db, err := New(defs)
	if err != nil {
		return nil, fmt.Errorf("weapons: %s: %w", path, err)
	}
	return db, nil
}

// Get returns the weapon for the given id.
func (d *Database) Get(id ID) (Weapon, bool) {
	w, ok := d.byID[id]
	return w, ok
}

// Contains reports whether the id refers to a known weapon.
func (d *Database) Contains(id ID) bool {
	_, ok := d.byID[id]
	return ok
}

// IDs returns all weapon ids in ascending order.
func (d *Database) IDs() []ID {
	ids := make([]ID, 0, len(d.byID))
	for id := range d.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of weapons in the database.
func (d *Database) Len() int {
	return len(d.byID)
}
