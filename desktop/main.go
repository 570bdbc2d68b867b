// Command desktop is a native client for Tiny Battle Run. It creates or joins
// a session, draws the view the server streams over WebSocket and reports the
// mouse position as pointer input.
//
// Usage: desktop [session-id]
package main

import (
	"fmt"
	"image/color"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"desktop/scene"
)

const (
	screenWidth  = 800
	screenHeight = 600
	headerHeight = 40
	entitySize   = 24
	defaultURL   = "http://localhost:8080"
)

var (
	meadowColor = color.RGBA{90, 170, 80, 255}
	shopColor   = color.RGBA{150, 110, 70, 255}
	headerColor = color.RGBA{30, 30, 30, 255}
	playerColor = color.RGBA{80, 140, 255, 255}
	enemyColor  = color.RGBA{220, 60, 60, 255}
	pickupColor = color.RGBA{250, 210, 60, 255}
)

// Game implements ebiten.Game
type Game struct {
	client   *Client
	lastX    int
	fieldW   float64
	fieldH   float64
	errorMsg string
}

// NewGame wraps a connected client
func NewGame(client *Client) *Game {
	return &Game{
		client: client,
		lastX:  -1,
		fieldW: screenWidth,
		fieldH: screenHeight - headerHeight,
	}
}

// Update reports pointer moves and handles keys
func (g *Game) Update() error {
	x, _ := ebiten.CursorPosition()
	if x != g.lastX && x >= 0 && x <= screenWidth {
		g.lastX = x
		if err := g.client.SendPointer(float64(x), g.fieldW); err != nil {
			g.errorMsg = err.Error()
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.client.Reset(); err != nil {
			g.errorMsg = err.Error()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	return nil
}

// toScreen converts viewport units to window pixels below the header
func (g *Game) toScreen(xVW, yVH float64) (float32, float32) {
	return float32(xVW / 100 * g.fieldW), float32(headerHeight + yVH/100*g.fieldH)
}

// Draw renders the scene
func (g *Game) Draw(screen *ebiten.Image) {
	g.client.View(func(s *scene.Scene, err error) {
		background := meadowColor
		if s.Level() == scene.LevelShop {
			background = shopColor
		}
		vector.DrawFilledRect(screen, 0, headerHeight, float32(g.fieldW), float32(g.fieldH), background, false)

		for _, v := range s.Visuals() {
			c := enemyColor
			switch {
			case v.Kind == "player":
				c = playerColor
			case scene.IsPickup(v.Kind):
				c = pickupColor
			}
			x, y := g.toScreen(v.X, v.Y)
			vector.DrawFilledRect(screen, x-entitySize/2, y-entitySize/2, entitySize, entitySize, c, false)
		}

		vector.DrawFilledRect(screen, 0, 0, screenWidth, headerHeight, headerColor, false)
		status := fmt.Sprintf("Session %s | %s | Currency: %d", g.client.sessionID, s.Level(), s.Currency())
		ebitenutil.DebugPrintAt(screen, status, 8, 4)

		footer := s.Message()
		switch {
		case s.Closed():
			footer = "Session closed by server"
		case err != nil:
			footer = "Disconnected: " + err.Error()
		case g.errorMsg != "":
			footer = g.errorMsg
		}
		ebitenutil.DebugPrintAt(screen, footer+"  [R] reset  [Q] quit", 8, 20)
	})
}

// Layout keeps a fixed logical size
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	baseURL := os.Getenv("TBR_SERVER_URL")
	if baseURL == "" {
		baseURL = defaultURL
	}
	client := NewClient(baseURL)

	sessionID := ""
	if len(os.Args) > 1 {
		sessionID = os.Args[1]
	} else {
		id, err := client.CreateSession(os.Getenv("TBR_CONFIG"))
		if err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		sessionID = id
	}

	if err := client.Connect(sessionID); err != nil {
		log.Fatalf("Failed to connect to session %s: %v", sessionID, err)
	}
	defer client.Close()

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Tiny Battle Run - " + sessionID)

	if err := ebiten.RunGame(NewGame(client)); err != nil && err != ebiten.Termination {
		log.Fatal(err)
	}
}
