package engine

import "fmt"

// SpawnOutcome describes what a producer tick did
type SpawnOutcome string

const (
	SpawnCreated       SpawnOutcome = "created"
	SpawnInactiveLevel SpawnOutcome = "inactive_level"
	SpawnAtCapacity    SpawnOutcome = "at_capacity"
	SpawnTypeCapped    SpawnOutcome = "type_capped"
	SpawnTypeExcluded  SpawnOutcome = "type_excluded"
	SpawnNoCandidate   SpawnOutcome = "no_candidate"
)

type pickupEntry struct {
	pickupType PickupType
	weight     float64
	cumulative float64
	cap        int
	excluded   map[Level]bool
}

// PickupTable is the normalized, precomputed pickup spawn table
type PickupTable struct {
	entries []pickupEntry
}

// NewPickupTable normalizes the configured weights so they sum to 1.0 and
// records caps and level exclusions. The walk order is PickupTypes.
func NewPickupTable(config *GameConfig) (*PickupTable, error) {
	if err := validatePickupTables(config); err != nil {
		return nil, err
	}

	total := 0.0
	for _, t := range PickupTypes {
		total += config.PickupWeights[t]
	}

	table := &PickupTable{}
	cumulative := 0.0
	for _, t := range PickupTypes {
		w, ok := config.PickupWeights[t]
		if !ok {
			continue
		}
		weight := w / total
		cumulative += weight
		excluded := make(map[Level]bool)
		for _, level := range config.PickupLevelExclusions[t] {
			excluded[level] = true
		}
		table.entries = append(table.entries, pickupEntry{
			pickupType: t,
			weight:     weight,
			cumulative: cumulative,
			cap:        config.PickupCaps[t],
			excluded:   excluded,
		})
	}

	// Rounding must never leave a gap at the top of [0, 1)
	last := len(table.entries) - 1
	for last >= 0 && table.entries[last].weight == 0 {
		last--
	}
	if last < 0 {
		return nil, fmt.Errorf("config validation: pickup_weights must not all be zero")
	}
	for i := last; i < len(table.entries); i++ {
		table.entries[i].cumulative = 1.0
	}

	return table, nil
}

// Choose returns the first type whose cumulative weight exceeds r
func (t *PickupTable) Choose(r float64) (PickupType, bool) {
	for _, entry := range t.entries {
		if entry.cumulative > r {
			return entry.pickupType, true
		}
	}
	return "", false
}

// Cap returns the concurrent-count cap of a pickup type
func (t *PickupTable) Cap(pt PickupType) int {
	for _, entry := range t.entries {
		if entry.pickupType == pt {
			return entry.cap
		}
	}
	return 0
}

// Excluded reports whether the pickup type may not spawn in the level
func (t *PickupTable) Excluded(pt PickupType, level Level) bool {
	for _, entry := range t.entries {
		if entry.pickupType == pt {
			return entry.excluded[level]
		}
	}
	return true
}

// Weight returns the normalized weight of a pickup type
func (t *PickupTable) Weight(pt PickupType) float64 {
	for _, entry := range t.entries {
		if entry.pickupType == pt {
			return entry.weight
		}
	}
	return 0
}

// SpawnEnemy runs one enemy producer tick. A tick outside the meadow or at
// capacity is dropped.
func (e *GameEngine) SpawnEnemy() (*Entity, SpawnOutcome) {
	if e.state.Level != LevelMeadow {
		return nil, SpawnInactiveLevel
	}
	if e.state.Enemies.Len() >= e.config.MaxEnemySpawns {
		return nil, SpawnAtCapacity
	}

	enemy := e.CreateEntity(KindEnemy, "")
	e.state.Enemies.Add(enemy)
	e.logger.Debug().Str("entity", enemy.ID).Float64("x", enemy.X).Float64("y", enemy.Y).Msg("enemy spawned")
	return enemy, SpawnCreated
}

// SpawnPickup runs one pickup producer tick. A draw that lands on a capped or
// excluded type produces nothing for this tick; there is no reroll.
func (e *GameEngine) SpawnPickup() (*Entity, SpawnOutcome) {
	if e.state.Level != LevelMeadow {
		return nil, SpawnInactiveLevel
	}

	candidate, ok := e.pickups.Choose(e.rng.Float64())
	if !ok {
		return nil, SpawnNoCandidate
	}
	if e.state.PickupCounts[candidate] >= e.pickups.Cap(candidate) {
		return nil, SpawnTypeCapped
	}
	if e.pickups.Excluded(candidate, e.state.Level) {
		return nil, SpawnTypeExcluded
	}

	pickup := e.CreateEntity(KindPickup, candidate)
	e.state.Pickups.Add(pickup)
	e.state.PickupCounts[candidate]++
	e.logger.Debug().Str("entity", pickup.ID).Str("pickup", string(candidate)).Msg("pickup spawned")
	return pickup, SpawnCreated
}
