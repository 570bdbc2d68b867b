package engine

// VisualHandle identifies a visual resource owned by the view
type VisualHandle string

// View is the rendering collaborator. The engine only writes to it and never
// reads pixel state back.
type View interface {
	CreateVisual(kind string) VisualHandle
	SetPosition(handle VisualHandle, xVW, yVH float64)
	ReleaseVisual(handle VisualHandle)
	SetLevelVisible(level Level, visible bool)
	SetEntityLayerVisible(visible bool)
}

// ScoreBoard receives the currency value after every change
type ScoreBoard interface {
	SetCurrency(value int)
}

// VisualKind returns the visual kind sent to the view for an entity.
// Pickups carry their type so the view can pick a texture.
func VisualKind(e *Entity) string {
	if e.Kind == KindPickup && e.PickupType != "" {
		return string(KindPickup) + ":" + string(e.PickupType)
	}
	return string(e.Kind)
}

// NopView discards every view call
type NopView struct{}

func (NopView) CreateVisual(kind string) VisualHandle { return VisualHandle(kind) }
func (NopView) SetPosition(handle VisualHandle, xVW, yVH float64) {}
func (NopView) ReleaseVisual(handle VisualHandle) {}
func (NopView) SetLevelVisible(level Level, visible bool) {}
func (NopView) SetEntityLayerVisible(visible bool) {}
func (NopView) SetCurrency(value int) {}
