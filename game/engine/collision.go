package engine

import (
	"errors"
	"fmt"
)

// ErrUnknownPickupType marks a live pickup whose type is not enumerated
var ErrUnknownPickupType = errors.New("unknown pickup type")

// Overlaps reports whether the point (px, py) lies strictly inside the box of
// half extents (hw, hh) centered on (ex, ey). Touching the edge is not an overlap.
func Overlaps(px, py, ex, ey, hw, hh float64) bool {
	return px > ex-hw && px < ex+hw && py > ey-hh && py < ey+hh
}

// CollisionRule parameterizes one collision pass over a collection
type CollisionRule struct {
	Name       string
	Target     *Collection
	HalfWidth  float64
	HalfHeight float64
	// React runs for every overlapping entity before it is removed
	React func(ent *Entity) error
	// Keep leaves overlapping entities in the collection
	Keep bool
}

// Collide runs a collision pass for the player against rule.Target. Entities
// are visited back to front so removing one never shifts an unvisited index.
// Every overlap is processed; reaction errors are collected and returned together.
func (e *GameEngine) Collide(rule CollisionRule) (int, error) {
	px, py := e.state.Player.X, e.state.Player.Y
	hits := 0
	var errs []error

	for i := len(*rule.Target) - 1; i >= 0; i-- {
		// A reaction may have shrunk the collection
		if i >= len(*rule.Target) {
			continue
		}
		ent := (*rule.Target)[i]
		if !Overlaps(px, py, ent.X, ent.Y, rule.HalfWidth, rule.HalfHeight) {
			continue
		}

		hits++
		if rule.React != nil {
			if err := rule.React(ent); err != nil {
				errs = append(errs, fmt.Errorf("%s collision with %s: %w", rule.Name, ent.ID, err))
			}
		}
		if !rule.Keep {
			e.DestroyEntity(rule.Target, ent)
		}
	}

	return hits, errors.Join(errs...)
}

// enemyRule rewards one currency per killed enemy
func (e *GameEngine) enemyRule(events *[]GameEvent) CollisionRule {
	return CollisionRule{
		Name:       "enemy",
		Target:     &e.state.Enemies,
		HalfWidth:  e.config.EnemyHalfWidth,
		HalfHeight: e.config.EnemyHalfHeight,
		React: func(ent *Entity) error {
			e.AddCurrency(1)
			e.state.Kills++
			if e.config.Messages.EnemyKilled != "" {
				e.state.Message = fmt.Sprintf(e.config.Messages.EnemyKilled, e.state.Currency)
			}
			*events = append(*events, GameEvent{
				Type:     EventEnemyKilled,
				Message:  e.state.Message,
				EntityID: ent.ID,
				Currency: e.state.Currency,
			})
			return nil
		},
	}
}

// pickupRule consumes pickups and applies their effect
func (e *GameEngine) pickupRule(events *[]GameEvent) CollisionRule {
	return CollisionRule{
		Name:       "pickup",
		Target:     &e.state.Pickups,
		HalfWidth:  e.config.PickupHalfWidth,
		HalfHeight: e.config.PickupHalfHeight,
		React: func(ent *Entity) error {
			if e.state.PickupCounts[ent.PickupType] > 0 {
				e.state.PickupCounts[ent.PickupType]--
			}
			e.state.Collected++
			*events = append(*events, GameEvent{
				Type:     EventPickupCollected,
				EntityID: ent.ID,
				Pickup:   ent.PickupType,
				Currency: e.state.Currency,
			})

			switch ent.PickupType {
			case PickupShop:
				if e.state.Level != LevelShop {
					if err := e.SwitchTo(LevelShop); err != nil {
						return err
					}
					*events = append(*events, GameEvent{
						Type:     EventLevelChanged,
						Message:  e.state.Message,
						Level:    LevelShop,
						Currency: e.state.Currency,
					})
				}
				return nil
			default:
				e.logger.Error().Str("entity", ent.ID).Str("pickup", string(ent.PickupType)).Msg("pickup of unknown type collided with player")
				return fmt.Errorf("%w: %q", ErrUnknownPickupType, ent.PickupType)
			}
		},
	}
}

// AddCurrency increments the currency and reports the new value to the score board
func (e *GameEngine) AddCurrency(amount int) {
	e.state.Currency += amount
	e.score.SetCurrency(e.state.Currency)
}
