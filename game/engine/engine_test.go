package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRandom replays fixed values, cycling when exhausted
type fakeRandom struct {
	ints   []int
	floats []float64
	ni, nf int
}

func (r *fakeRandom) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[r.ni%len(r.ints)]
	r.ni++
	return v % n
}

func (r *fakeRandom) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[r.nf%len(r.floats)]
	r.nf++
	return v
}

// recordingView records every call made by the engine
type recordingView struct {
	created       []string
	released      []VisualHandle
	positions     map[VisualHandle][2]float64
	levelVisible  map[Level]bool
	entityLayer   bool
	currency      []int
	nextHandleNum int
}

func newRecordingView() *recordingView {
	return &recordingView{
		positions:    make(map[VisualHandle][2]float64),
		levelVisible: make(map[Level]bool),
	}
}

func (v *recordingView) CreateVisual(kind string) VisualHandle {
	v.nextHandleNum++
	v.created = append(v.created, kind)
	return VisualHandle(fmt.Sprintf("%s-%d", kind, v.nextHandleNum))
}

func (v *recordingView) SetPosition(handle VisualHandle, xVW, yVH float64) {
	v.positions[handle] = [2]float64{xVW, yVH}
}

func (v *recordingView) ReleaseVisual(handle VisualHandle) {
	v.released = append(v.released, handle)
	delete(v.positions, handle)
}

func (v *recordingView) SetLevelVisible(level Level, visible bool) {
	v.levelVisible[level] = visible
}

func (v *recordingView) SetEntityLayerVisible(visible bool) {
	v.entityLayer = visible
}

func (v *recordingView) SetCurrency(value int) {
	v.currency = append(v.currency, value)
}

func createTestConfig() *GameConfig {
	config := DefaultGameConfig()
	config.Name = "Engine Test Config"
	config.Description = "Configuration for engine integration tests"
	config.EnemyHalfWidth = 2
	config.EnemyHalfHeight = 2
	config.PickupHalfWidth = 2
	config.PickupHalfHeight = 2
	return config
}

func newTestEngine(t *testing.T, config *GameConfig, rng Random) (*GameEngine, *recordingView) {
	t.Helper()
	view := newRecordingView()
	if rng == nil {
		rng = &fakeRandom{}
	}
	counter := 0
	e, err := NewEngine(config,
		WithRandom(rng),
		WithView(view),
		WithScoreBoard(view),
		WithIDGenerator(func() string {
			counter++
			return fmt.Sprintf("ent-%d", counter)
		}),
	)
	require.NoError(t, err)
	return e, view
}

// place puts a new entity at an exact position, bypassing the random spawn
func place(e *GameEngine, c *Collection, kind EntityKind, pt PickupType, x, y float64) *Entity {
	ent := e.CreateEntity(kind, pt)
	ent.X, ent.Y = x, y
	c.Add(ent)
	if kind == KindPickup {
		e.state.PickupCounts[pt]++
	}
	return ent
}

func TestNewEngine(t *testing.T) {
	config := createTestConfig()
	e, view := newTestEngine(t, config, nil)

	state := e.GetState()
	assert.Equal(t, LevelMeadow, state.Level)
	assert.Equal(t, 0, state.Currency)
	assert.Equal(t, config.PlayerStartX, state.Player.X)
	assert.Equal(t, config.PlayerStartY, state.Player.Y)
	assert.Empty(t, state.Enemies)
	assert.Empty(t, state.Pickups)
	assert.Equal(t, 0, state.PickupCounts[PickupShop])
	assert.Equal(t, config.Messages.Welcome, state.Message)

	assert.Equal(t, []string{"player"}, view.created)
	assert.True(t, view.levelVisible[LevelMeadow])
	assert.False(t, view.levelVisible[LevelShop])
	assert.True(t, view.entityLayer)
	assert.Equal(t, [2]float64{40, 95}, view.positions[state.Player.Visual])
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	config := createTestConfig()
	config.PickupWeights = map[PickupType]float64{PickupShop: 0}

	_, err := NewEngine(config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not all be zero")
}

func TestTick_AdvancesPlayer(t *testing.T) {
	e, view := newTestEngine(t, createTestConfig(), nil)

	result, err := e.Tick()
	require.NoError(t, err)
	assert.Equal(t, 94.0, result.PlayerY)
	assert.True(t, result.CollisionsRun)
	assert.Equal(t, 1, e.GetState().Ticks)
	assert.Equal(t, [2]float64{40, 94}, view.positions[e.GetState().Player.Visual])
}

func TestTick_EnemyCollisionAddsCurrency(t *testing.T) {
	e, view := newTestEngine(t, createTestConfig(), nil)
	e.state.Player.Y = 51

	enemy := place(e, &e.state.Enemies, KindEnemy, "", 40, 50)
	far := place(e, &e.state.Enemies, KindEnemy, "", 80, 20)

	result, err := e.Tick()
	require.NoError(t, err)

	assert.Equal(t, 1, result.EnemiesHit)
	assert.Equal(t, 1, e.Currency())
	assert.Equal(t, 1, e.GetState().Kills)
	assert.Equal(t, Collection{far}, e.GetState().Enemies)
	assert.Contains(t, view.released, enemy.Visual)
	assert.Equal(t, []int{0, 1}, view.currency)
	require.Len(t, result.Events, 1)
	assert.Equal(t, EventEnemyKilled, result.Events[0].Type)
	assert.Equal(t, "Enemy destroyed! Currency: 1", e.GetState().Message)
}

func TestTick_EdgeContactIsNotACollision(t *testing.T) {
	e, _ := newTestEngine(t, createTestConfig(), nil)
	e.state.Player.X = 50
	e.state.Player.Y = 51

	place(e, &e.state.Enemies, KindEnemy, "", 52, 50)

	result, err := e.Tick()
	require.NoError(t, err)
	assert.Equal(t, 0, result.EnemiesHit)
	assert.Equal(t, 0, e.Currency())
	assert.Equal(t, 1, e.GetState().Enemies.Len())
}

func TestTick_MultipleOverlapsAllProcessed(t *testing.T) {
	e, view := newTestEngine(t, createTestConfig(), nil)
	e.state.Player.Y = 51

	place(e, &e.state.Enemies, KindEnemy, "", 40, 50)
	place(e, &e.state.Enemies, KindEnemy, "", 41, 49)
	place(e, &e.state.Enemies, KindEnemy, "", 39, 51)

	result, err := e.Tick()
	require.NoError(t, err)
	assert.Equal(t, 3, result.EnemiesHit)
	assert.Equal(t, 3, e.Currency())
	assert.Empty(t, e.GetState().Enemies)
	assert.Len(t, view.released, 3)
	assert.Equal(t, []int{0, 1, 2, 3}, view.currency)
}

func TestTick_ShopPickupSwitchesLevel(t *testing.T) {
	e, view := newTestEngine(t, createTestConfig(), nil)
	e.state.Player.Y = 51

	place(e, &e.state.Pickups, KindPickup, PickupShop, 40, 50)
	require.Equal(t, 1, e.GetState().PickupCounts[PickupShop])

	result, err := e.Tick()
	require.NoError(t, err)

	assert.Equal(t, 1, result.PickupsHit)
	assert.Equal(t, LevelShop, e.Level())
	assert.Equal(t, LevelShop, result.LevelAfterTick)
	assert.Equal(t, 0, e.GetState().PickupCounts[PickupShop])
	assert.Empty(t, e.GetState().Pickups)
	assert.True(t, view.levelVisible[LevelShop])
	assert.False(t, view.levelVisible[LevelMeadow])
	assert.False(t, view.entityLayer)
	assert.Equal(t, "Welcome to the shop!", e.GetState().Message)

	types := make([]string, 0, len(result.Events))
	for _, ev := range result.Events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{EventPickupCollected, EventLevelChanged}, types)
}

func TestTick_EnemiesCollideBeforePickups(t *testing.T) {
	e, _ := newTestEngine(t, createTestConfig(), nil)
	e.state.Player.Y = 51

	place(e, &e.state.Enemies, KindEnemy, "", 40, 50)
	place(e, &e.state.Pickups, KindPickup, PickupShop, 40, 50)

	result, err := e.Tick()
	require.NoError(t, err)

	assert.Equal(t, 1, e.Currency())
	assert.Equal(t, LevelShop, e.Level())
	require.Len(t, result.Events, 3)
	assert.Equal(t, EventEnemyKilled, result.Events[0].Type)
	assert.Equal(t, EventPickupCollected, result.Events[1].Type)
}

func TestTick_NoCollisionsInShop(t *testing.T) {
	e, _ := newTestEngine(t, createTestConfig(), nil)
	require.NoError(t, e.SwitchTo(LevelShop))
	e.state.Player.Y = 51

	place(e, &e.state.Enemies, KindEnemy, "", 40, 50)

	result, err := e.Tick()
	require.NoError(t, err)
	assert.False(t, result.CollisionsRun)
	assert.Equal(t, 50.0, result.PlayerY)
	assert.Equal(t, 0, e.Currency())
	assert.Equal(t, 1, e.GetState().Enemies.Len())
}

func TestTick_UnknownPickupType(t *testing.T) {
	e, view := newTestEngine(t, createTestConfig(), nil)
	e.state.Player.Y = 51

	bogus := place(e, &e.state.Pickups, KindPickup, PickupType("rocket"), 40, 50)

	result, err := e.Tick()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPickupType))
	assert.Equal(t, 1, result.PickupsHit)
	assert.Empty(t, e.GetState().Pickups)
	assert.Contains(t, view.released, bogus.Visual)
	assert.Equal(t, LevelMeadow, e.Level())
}

func TestReset(t *testing.T) {
	e, view := newTestEngine(t, createTestConfig(), nil)
	e.state.Player.Y = 51

	place(e, &e.state.Enemies, KindEnemy, "", 40, 50)
	remaining := place(e, &e.state.Enemies, KindEnemy, "", 80, 20)
	place(e, &e.state.Pickups, KindPickup, PickupShop, 40, 50)
	_, err := e.Tick()
	require.NoError(t, err)
	require.Equal(t, LevelShop, e.Level())
	playerVisual := e.GetState().Player.Visual

	state := e.Reset()

	assert.Equal(t, LevelMeadow, state.Level)
	assert.Equal(t, 0, state.Currency)
	assert.Empty(t, state.Enemies)
	assert.Empty(t, state.Pickups)
	assert.Equal(t, 0, state.PickupCounts[PickupShop])
	assert.Equal(t, playerVisual, state.Player.Visual)
	assert.Equal(t, 95.0, state.Player.Y)
	assert.Equal(t, 1, state.Kills)
	assert.Equal(t, 1, state.Ticks)
	assert.Equal(t, "Back to the meadow", state.Message)

	assert.Contains(t, view.released, remaining.Visual)
	assert.True(t, view.levelVisible[LevelMeadow])
	assert.False(t, view.levelVisible[LevelShop])
	assert.True(t, view.entityLayer)
	assert.Equal(t, 0, view.currency[len(view.currency)-1])
}

func TestCurrencyNeverDecreases(t *testing.T) {
	e, _ := newTestEngine(t, createTestConfig(), &fakeRandom{ints: []int{10, 40, 60, 5}})

	last := 0
	for i := 0; i < 500; i++ {
		if i%20 == 0 {
			e.SpawnEnemy()
		}
		if i%7 == 0 {
			require.NoError(t, e.SetPointer(float64(i%100), 100))
		}
		_, err := e.Tick()
		require.NoError(t, err)
		require.GreaterOrEqual(t, e.Currency(), last)
		require.LessOrEqual(t, e.GetState().Enemies.Len(), e.GetConfig().MaxEnemySpawns)
		last = e.Currency()
	}
}
