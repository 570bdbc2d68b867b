package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/tiny-battle-run/game/engine"
	"github.com/wricardo/tiny-battle-run/game/service"
)

const (
	// Size of the character map drawn for agents
	mapCols = 40
	mapRows = 20

	// Viewport width assumed when a tool call omits it
	defaultViewportWidth = 100.0
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Tiny Battle Run",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Tiny Battle Run - MCP Interface

This is a thin client that proxies all requests to the REST API server.

The game runs in real time. The player drives up the screen on its own and
wraps around at the top; you only steer left and right by reporting a pointer
position. Run over enemies (E) to earn currency. Collect the shop pickup ($)
to enter the shop. reset_game brings you back to the meadow.

AVAILABLE TOOLS:
- create_session: Create a new game session
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Get current game state with a map of the field
- move_pointer: Steer the player to a horizontal position
- reset_game: Back to the meadow with zero currency
- list_configs: List available configurations
- game_instructions: Rules and coordinate system`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	sessionOnly := mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Session ID",
			},
		},
		Required: []string{"session_id"},
	}

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnly,
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state with a character map of the field",
		InputSchema: sessionOnly,
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_pointer",
		Description: "Steer the player: report a pointer x position within a viewport of the given width",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
				"x": map[string]interface{}{
					"type":        "number",
					"description": "Pointer x position in pixels (or in 0-100 units when viewport_width is omitted)",
				},
				"viewport_width": map[string]interface{}{
					"type":        "number",
					"description": "Viewport width in pixels (default 100)",
				},
			},
			Required: []string{"session_id", "x"},
		},
	}, c.handleMovePointer)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to the meadow with zero currency",
		InputSchema: sessionOnly,
	}, c.handleReset)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the game rules and coordinate system",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configID, _ := arguments(request)["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		level, currency := engine.Level("?"), 0
		if s.GameState != nil {
			level, currency = s.GameState.Level, s.GameState.Currency
		}
		fmt.Fprintf(&result, "- %s (Config: %s, Level: %s, Currency: %d, Created: %s)\n",
			s.ID, s.ConfigName, level, currency, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMovePointer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, ok := args["x"].(float64)
	if !ok {
		return mcp.NewToolResultError("x is required and must be a number"), nil
	}
	viewportWidth, ok := args["viewport_width"].(float64)
	if !ok {
		viewportWidth = defaultViewportWidth
	}

	body := map[string]float64{
		"x":              x,
		"viewport_width": viewportWidth,
	}

	var result service.PointerResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/pointer"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPointerResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := response.Message + "\n\n" + formatGameState(response.State)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&result, "• %s (config_id: %s)\n  %s\n  Move: %dms, Enemies: every %dms up to %d, Pickups: every %dms\n\n",
			config.Name, config.ConfigID, config.Description,
			config.MoveIntervalMs, config.EnemySpawnIntervalMs, config.MaxEnemySpawns, config.PickupSpawnIntervalMs)
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Tiny Battle Run - Instructions

GAME OBJECTIVE:
Steer your vehicle across the meadow, run over enemies for currency and find
the shop.

COORDINATES:
• The field is 100 x 100 viewport units. x grows to the right, y grows down.
• The player starts near the bottom (y around 95) and moves up one unit every
  move interval. After passing y 0 it reappears at y 100.
• Enemies and pickups appear at random positions between 15 and 86 on both
  axes.

STEERING:
• move_pointer sets the player's x directly: x / viewport_width * 100.
• With viewport_width omitted, x is already in viewport units (0-100).
• Only the latest pointer position matters; the player never moves sideways
  on its own.

MEADOW:
• Touching an enemy (E) destroys it and adds 1 currency.
• Enemies keep appearing until the configured maximum is on the field.
• Touching the shop pickup ($) moves you to the shop.

SHOP:
• Nothing spawns and nothing collides in the shop. The player keeps driving.
• reset_game is the way back to the meadow. It also clears every enemy and
  pickup and sets currency back to 0.

MAP LEGEND (game_state):
• P - player
• E - enemy
• $ - shop pickup
• . - empty

STRATEGY:
• Read the enemy positions from game_state and move_pointer to their x
  before the player reaches their y.
• The player covers 100 units per 100 move intervals, so with the classic
  10ms interval a full lap takes about one second.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatPointerResult(result *service.PointerResult) string {
	return fmt.Sprintf("Player at (%.1f, %.1f) | Level: %s | Currency: %d",
		result.PlayerX, result.PlayerY, result.Level, result.Currency)
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder

	fmt.Fprintf(&result, "Level: %s | Player: (%.1f, %.1f) | Currency: %d\n",
		state.Level, state.Player.X, state.Player.Y, state.Currency)
	fmt.Fprintf(&result, "Kills: %d | Pickups collected: %d | Ticks: %d\n\n",
		state.Kills, state.Collected, state.Ticks)

	if state.Level == engine.LevelMeadow {
		result.WriteString(renderField(state, mapCols, mapRows))
		result.WriteString("\n")

		if len(state.Enemies) > 0 {
			result.WriteString("Enemies:\n")
			for _, e := range state.Enemies {
				fmt.Fprintf(&result, "  E (%.1f, %.1f)\n", e.X, e.Y)
			}
		}
		if len(state.Pickups) > 0 {
			result.WriteString("Pickups:\n")
			for _, p := range state.Pickups {
				fmt.Fprintf(&result, "  %s (%.1f, %.1f)\n", p.PickupType, p.X, p.Y)
			}
		}
	} else {
		result.WriteString("In the shop. Use reset_game to return to the meadow.\n")
	}

	if state.Message != "" {
		fmt.Fprintf(&result, "\nMessage: %s", state.Message)
	}

	return result.String()
}

// renderField draws the meadow as a cols x rows character grid
func renderField(state *engine.GameState, cols, rows int) string {
	grid := make([][]byte, rows)
	for y := range grid {
		grid[y] = bytes.Repeat([]byte{'.'}, cols)
	}

	plot := func(x, y float64, ch byte) {
		col := cell(x, cols)
		row := cell(y, rows)
		grid[row][col] = ch
	}

	for _, p := range state.Pickups {
		plot(p.X, p.Y, '$')
	}
	for _, e := range state.Enemies {
		plot(e.X, e.Y, 'E')
	}
	plot(state.Player.X, state.Player.Y, 'P')

	var b strings.Builder
	for _, row := range grid {
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}

// cell maps a viewport coordinate to a grid index in [0, n)
func cell(v float64, n int) int {
	i := int(math.Floor(v / engine.ViewportMax * float64(n)))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
