package websocket

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wricardo/tiny-battle-run/game/engine"
)

// View command types sent to clients
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

// Client message types
const (
	ClientPointer = "pointer"
)

// Wire formats a client may ask for with ?format=
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Point is a position in viewport units
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Message is one server-to-client frame: a view command, a game event or a
// snapshot of everything currently on screen
type Message struct {
	Type      string              `json:"type" msgpack:"type"`
	SessionID string              `json:"session_id" msgpack:"session_id"`
	Handle    engine.VisualHandle `json:"handle,omitempty" msgpack:"handle,omitempty"`
	Kind      string              `json:"kind,omitempty" msgpack:"kind,omitempty"`
	Position  *Point              `json:"position,omitempty" msgpack:"position,omitempty"`
	Level     engine.Level        `json:"level,omitempty" msgpack:"level,omitempty"`
	Visible   *bool               `json:"visible,omitempty" msgpack:"visible,omitempty"`
	Currency  *int                `json:"currency,omitempty" msgpack:"currency,omitempty"`
	Event     *engine.GameEvent   `json:"event,omitempty" msgpack:"event,omitempty"`
	Snapshot  *Snapshot           `json:"snapshot,omitempty" msgpack:"snapshot,omitempty"`
}

// ClientMessage is one client-to-server frame
type ClientMessage struct {
	Type          string  `json:"type" msgpack:"type"`
	X             float64 `json:"x" msgpack:"x"`
	ViewportWidth float64 `json:"viewport_width" msgpack:"viewport_width"`
}

// Visual is a mirrored visual resource
type Visual struct {
	Handle engine.VisualHandle `json:"handle" msgpack:"handle"`
	Kind   string              `json:"kind" msgpack:"kind"`
	X      float64             `json:"x" msgpack:"x"`
	Y      float64             `json:"y" msgpack:"y"`

	seq uint64
}

// Snapshot is the full view state of a session
type Snapshot struct {
	Visuals            []Visual              `json:"visuals" msgpack:"visuals"`
	Levels             map[engine.Level]bool `json:"levels" msgpack:"levels"`
	EntityLayerVisible bool                  `json:"entity_layer_visible" msgpack:"entity_layer_visible"`
	Currency           int                   `json:"currency" msgpack:"currency"`
}

// mirror replays view commands so late joiners can be sent a snapshot
type mirror struct {
	visuals     map[engine.VisualHandle]*Visual
	levels      map[engine.Level]bool
	entityLayer bool
	currency    int
	seq         uint64
}

func newMirror() *mirror {
	return &mirror{
		visuals:     make(map[engine.VisualHandle]*Visual),
		levels:      make(map[engine.Level]bool),
		entityLayer: true,
	}
}

func (m *mirror) apply(msg *Message) {
	switch msg.Type {
	case OpCreateVisual:
		m.seq++
		m.visuals[msg.Handle] = &Visual{Handle: msg.Handle, Kind: msg.Kind, seq: m.seq}
	case OpSetPosition:
		if v, ok := m.visuals[msg.Handle]; ok && msg.Position != nil {
			v.X, v.Y = msg.Position.X, msg.Position.Y
		}
	case OpReleaseVisual:
		delete(m.visuals, msg.Handle)
	case OpSetLevelVisible:
		if msg.Visible != nil {
			m.levels[msg.Level] = *msg.Visible
		}
	case OpSetEntityLayerVisible:
		if msg.Visible != nil {
			m.entityLayer = *msg.Visible
		}
	case OpSetCurrency:
		if msg.Currency != nil {
			m.currency = *msg.Currency
		}
	}
}

func (m *mirror) snapshot() *Snapshot {
	snap := &Snapshot{
		Visuals:            make([]Visual, 0, len(m.visuals)),
		Levels:             make(map[engine.Level]bool, len(m.levels)),
		EntityLayerVisible: m.entityLayer,
		Currency:           m.currency,
	}
	for _, v := range m.visuals {
		snap.Visuals = append(snap.Visuals, *v)
	}
	// Creation order, so the player is drawn first
	sort.Slice(snap.Visuals, func(i, j int) bool { return snap.Visuals[i].seq < snap.Visuals[j].seq })
	for level, visible := range m.levels {
		snap.Levels[level] = visible
	}
	return snap
}

// Encode marshals a message in the given wire format
func Encode(format string, msg *Message) ([]byte, error) {
	switch format {
	case FormatMsgpack:
		return msgpack.Marshal(msg)
	case FormatJSON, "":
		return json.Marshal(msg)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// DecodeClientMessage parses a client frame. Binary frames are msgpack,
// text frames JSON.
func DecodeClientMessage(binary bool, data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	var err error
	if binary {
		err = msgpack.Unmarshal(data, &msg)
	} else {
		err = json.Unmarshal(data, &msg)
	}
	if err != nil {
		return nil, fmt.Errorf("decode client message: %w", err)
	}
	return &msg, nil
}
