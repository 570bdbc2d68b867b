// Package scene keeps the desktop client's copy of a session's view. It
// applies the server's view commands and snapshots and knows nothing about
// drawing.
package scene

import (
	"sort"
	"strings"
)

// View command and event types sent by the server
const (
	OpCreateVisual          = "create_visual"
	OpSetPosition           = "set_position"
	OpReleaseVisual         = "release_visual"
	OpSetLevelVisible       = "set_level_visible"
	OpSetEntityLayerVisible = "set_entity_layer_visible"
	OpSetCurrency           = "set_currency"
	OpSnapshot              = "snapshot"
	OpSessionClosed         = "session_closed"
)

const (
	LevelMeadow = "meadow"
	LevelShop   = "shop"
)

// Point is a position in viewport units
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Event is a game event forwarded by the server
type Event struct {
	Type     string `json:"type" msgpack:"type"`
	Message  string `json:"message,omitempty" msgpack:"message,omitempty"`
	EntityID string `json:"entity_id,omitempty" msgpack:"entity_id,omitempty"`
	Pickup   string `json:"pickup,omitempty" msgpack:"pickup,omitempty"`
	Level    string `json:"level,omitempty" msgpack:"level,omitempty"`
	Currency int    `json:"currency" msgpack:"currency"`
}

// Visual is one thing on screen
type Visual struct {
	Handle string  `json:"handle" msgpack:"handle"`
	Kind   string  `json:"kind" msgpack:"kind"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`

	order int
}

// Snapshot is the full view state sent to a client when it connects
type Snapshot struct {
	Visuals            []Visual        `json:"visuals" msgpack:"visuals"`
	Levels             map[string]bool `json:"levels" msgpack:"levels"`
	EntityLayerVisible bool            `json:"entity_layer_visible" msgpack:"entity_layer_visible"`
	Currency           int             `json:"currency" msgpack:"currency"`
}

// Message is one server frame
type Message struct {
	Type      string    `json:"type" msgpack:"type"`
	SessionID string    `json:"session_id" msgpack:"session_id"`
	Handle    string    `json:"handle,omitempty" msgpack:"handle,omitempty"`
	Kind      string    `json:"kind,omitempty" msgpack:"kind,omitempty"`
	Position  *Point    `json:"position,omitempty" msgpack:"position,omitempty"`
	Level     string    `json:"level,omitempty" msgpack:"level,omitempty"`
	Visible   *bool     `json:"visible,omitempty" msgpack:"visible,omitempty"`
	Currency  *int      `json:"currency,omitempty" msgpack:"currency,omitempty"`
	Event     *Event    `json:"event,omitempty" msgpack:"event,omitempty"`
	Snapshot  *Snapshot `json:"snapshot,omitempty" msgpack:"snapshot,omitempty"`
}

// PointerMessage is the only frame a client sends
type PointerMessage struct {
	Type          string  `json:"type" msgpack:"type"`
	X             float64 `json:"x" msgpack:"x"`
	ViewportWidth float64 `json:"viewport_width" msgpack:"viewport_width"`
}

// NewPointer builds a pointer report for a cursor at x in a window width wide
func NewPointer(x, width float64) PointerMessage {
	return PointerMessage{Type: "pointer", X: x, ViewportWidth: width}
}

// Scene is not safe for concurrent use
type Scene struct {
	visuals     map[string]*Visual
	levels      map[string]bool
	entityLayer bool
	currency    int
	message     string
	closed      bool
	next        int
}

// New returns an empty scene showing the meadow
func New() *Scene {
	return &Scene{
		visuals:     make(map[string]*Visual),
		levels:      map[string]bool{LevelMeadow: true},
		entityLayer: true,
	}
}

// Apply updates the scene with one server frame
func (s *Scene) Apply(msg *Message) {
	switch msg.Type {
	case OpSnapshot:
		if msg.Snapshot != nil {
			s.load(msg.Snapshot)
		}
	case OpCreateVisual:
		s.next++
		s.visuals[msg.Handle] = &Visual{Handle: msg.Handle, Kind: msg.Kind, order: s.next}
	case OpSetPosition:
		if v, ok := s.visuals[msg.Handle]; ok && msg.Position != nil {
			v.X, v.Y = msg.Position.X, msg.Position.Y
		}
	case OpReleaseVisual:
		delete(s.visuals, msg.Handle)
	case OpSetLevelVisible:
		if msg.Visible != nil {
			s.levels[msg.Level] = *msg.Visible
		}
	case OpSetEntityLayerVisible:
		if msg.Visible != nil {
			s.entityLayer = *msg.Visible
		}
	case OpSetCurrency:
		if msg.Currency != nil {
			s.currency = *msg.Currency
		}
	case OpSessionClosed:
		s.closed = true
	default:
		if msg.Event != nil && msg.Event.Message != "" {
			s.message = msg.Event.Message
		}
	}
}

func (s *Scene) load(snap *Snapshot) {
	s.visuals = make(map[string]*Visual, len(snap.Visuals))
	for i := range snap.Visuals {
		v := snap.Visuals[i]
		s.next++
		v.order = s.next
		s.visuals[v.Handle] = &v
	}
	s.levels = make(map[string]bool, len(snap.Levels))
	for level, visible := range snap.Levels {
		s.levels[level] = visible
	}
	s.entityLayer = snap.EntityLayerVisible
	s.currency = snap.Currency
}

// Visuals returns the visuals in creation order. Entities are left out while
// the entity layer is hidden; the player is always included.
func (s *Scene) Visuals() []Visual {
	out := make([]Visual, 0, len(s.visuals))
	for _, v := range s.visuals {
		if !s.entityLayer && v.Kind != "player" {
			continue
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// Level returns the visible level. The shop wins if both are visible.
func (s *Scene) Level() string {
	if s.levels[LevelShop] {
		return LevelShop
	}
	return LevelMeadow
}

func (s *Scene) Currency() int   { return s.currency }
func (s *Scene) Message() string { return s.message }
func (s *Scene) Closed() bool    { return s.closed }

// IsPickup reports whether a visual kind names a pickup ("pickup" or "pickup:<type>")
func IsPickup(kind string) bool {
	return kind == "pickup" || strings.HasPrefix(kind, "pickup:")
}
