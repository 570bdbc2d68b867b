package engine

// Collection is an ordered set of entities. Removal is by identity.
type Collection []*Entity

// Add appends an entity to the collection
func (c *Collection) Add(e *Entity) {
	*c = append(*c, e)
}

// Remove detaches the entity from the collection. Removing an entity that is
// not present is a no-op and reports false.
func (c *Collection) Remove(e *Entity) bool {
	items := *c
	for i := len(items) - 1; i >= 0; i-- {
		if items[i] == e {
			copy(items[i:], items[i+1:])
			items[len(items)-1] = nil
			*c = items[:len(items)-1]
			return true
		}
	}
	return false
}

// Len returns the number of live entities
func (c Collection) Len() int {
	return len(c)
}

// CountType returns the number of pickups of the given type
func (c Collection) CountType(t PickupType) int {
	count := 0
	for _, e := range c {
		if e.PickupType == t {
			count++
		}
	}
	return count
}

func (c Collection) clone() Collection {
	cp := make(Collection, len(c))
	for i, e := range c {
		dup := *e
		cp[i] = &dup
	}
	return cp
}

// CreateEntity builds an entity of the given kind at a random spawn position
// and asks the view for a visual. pickupType is only meaningful for pickups.
func (e *GameEngine) CreateEntity(kind EntityKind, pickupType PickupType) *Entity {
	ent := &Entity{
		ID:         e.newID(),
		Kind:       kind,
		X:          float64(SpawnMin + e.rng.Intn(SpawnMax-SpawnMin)),
		Y:          float64(SpawnMin + e.rng.Intn(SpawnMax-SpawnMin)),
		PickupType: pickupType,
	}
	ent.Visual = e.view.CreateVisual(VisualKind(ent))
	e.view.SetPosition(ent.Visual, ent.X, ent.Y)
	return ent
}

// DestroyEntity removes the entity from the collection and releases its
// visual. It is safe to call more than once for the same entity.
func (e *GameEngine) DestroyEntity(c *Collection, ent *Entity) bool {
	if ent == nil || !c.Remove(ent) {
		return false
	}
	e.view.ReleaseVisual(ent.Visual)
	return true
}
