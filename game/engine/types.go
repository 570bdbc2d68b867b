package engine

// Level identifies a discrete game screen
type Level string

const (
	LevelMeadow Level = "meadow"
	LevelShop   Level = "shop"
)

// Levels lists every known level
var Levels = []Level{LevelMeadow, LevelShop}

// Valid reports whether the level is one of the known levels
func (l Level) Valid() bool {
	for _, known := range Levels {
		if l == known {
			return true
		}
	}
	return false
}

// PickupType represents the kind of a pickup entity
type PickupType string

const (
	PickupShop PickupType = "shop"
)

// PickupTypes is the fixed order used when walking the spawn weight table
var PickupTypes = []PickupType{PickupShop}

// Valid reports whether the pickup type is one of the enumerated types
func (t PickupType) Valid() bool {
	for _, known := range PickupTypes {
		if t == known {
			return true
		}
	}
	return false
}

// EntityKind tells which collection an entity belongs to
type EntityKind string

const (
	KindEnemy  EntityKind = "enemy"
	KindPickup EntityKind = "pickup"
	KindPlayer EntityKind = "player"
)

const (
	// Spawn positions are drawn from [SpawnMin, SpawnMax) on both axes
	SpawnMin = 15
	SpawnMax = 86

	// ViewportMax is the upper bound of normalized viewport units
	ViewportMax = 100.0

	// Validation constants
	MinIntervalMs = 1
	MaxIntervalMs = 60000
	MaxEnemyLimit = 500
	MaxHalfExtent = 50.0
	MaxPickupCap  = 100
)

// Entity is a positioned, destructible game object owned by one collection
type Entity struct {
	ID         string       `json:"id" msgpack:"id"`
	Kind       EntityKind   `json:"kind" msgpack:"kind"`
	X          float64      `json:"x" msgpack:"x"`
	Y          float64      `json:"y" msgpack:"y"`
	PickupType PickupType   `json:"pickup_type,omitempty" msgpack:"pickup_type,omitempty"`
	Visual     VisualHandle `json:"visual,omitempty" msgpack:"visual,omitempty"`
}

// Player is the steered vehicle
type Player struct {
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Visual VisualHandle `json:"visual,omitempty"`
}

// GameState represents the complete simulation state of one game
type GameState struct {
	Level        Level              `json:"level"`
	Player       Player             `json:"player"`
	Enemies      Collection         `json:"enemies"`
	Pickups      Collection         `json:"pickups"`
	PickupCounts map[PickupType]int `json:"pickup_counts"`
	Currency     int                `json:"currency"`
	Message      string             `json:"message"`
	ConfigName   string             `json:"config_name"`

	// Counters kept for reporting, not used by game rules
	Ticks       int `json:"ticks"`
	Kills       int `json:"kills"`
	Collected   int `json:"collected"`
	Transitions int `json:"transitions"`
}

// Snapshot returns a deep copy that can be handed to other goroutines
func (gs *GameState) Snapshot() *GameState {
	cp := *gs
	cp.Enemies = gs.Enemies.clone()
	cp.Pickups = gs.Pickups.clone()
	cp.PickupCounts = make(map[PickupType]int, len(gs.PickupCounts))
	for t, n := range gs.PickupCounts {
		cp.PickupCounts[t] = n
	}
	return &cp
}

// GameEvent represents something noteworthy that happened during a tick
type GameEvent struct {
	Type     string     `json:"type" msgpack:"type"` // "enemy_killed", "pickup_collected", "level_changed", "reset"
	Message  string     `json:"message,omitempty" msgpack:"message,omitempty"`
	EntityID string     `json:"entity_id,omitempty" msgpack:"entity_id,omitempty"`
	Pickup   PickupType `json:"pickup,omitempty" msgpack:"pickup,omitempty"`
	Level    Level      `json:"level,omitempty" msgpack:"level,omitempty"`
	Currency int        `json:"currency" msgpack:"currency"`
}

const (
	EventEnemyKilled     = "enemy_killed"
	EventPickupCollected = "pickup_collected"
	EventLevelChanged    = "level_changed"
	EventReset           = "reset"
)
