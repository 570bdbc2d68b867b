package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/tiny-battle-run/game/engine"
	"github.com/wricardo/tiny-battle-run/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Tiny Battle Run Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func TestFlagDefaults(t *testing.T) {
	if *port <= 0 || *port > 65535 {
		t.Errorf("Invalid default port: %d", *port)
	}
	if *host == "" {
		t.Error("Host should have a default value")
	}
	if *configDir == "" {
		t.Error("Config directory should have a default value")
	}
}

func TestGetEnvDefault(t *testing.T) {
	t.Setenv("TBR_TEST_VALUE", "")
	if got := getEnvDefault("TBR_TEST_VALUE", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %s", got)
	}

	t.Setenv("TBR_TEST_VALUE", "set")
	if got := getEnvDefault("TBR_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("Expected set, got %s", got)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		debug    bool
		level    string
		expected zerolog.Level
	}{
		{name: "Default info", level: "", expected: zerolog.InfoLevel},
		{name: "Explicit warn", level: "warn", expected: zerolog.WarnLevel},
		{name: "Invalid falls back to info", level: "loud", expected: zerolog.InfoLevel},
		{name: "Debug lowers level", debug: true, level: "info", expected: zerolog.DebugLevel},
		{name: "Debug keeps trace", debug: true, level: "trace", expected: zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.debug, tt.level)
			if logger.GetLevel() != tt.expected {
				t.Errorf("Expected level %s, got %s", tt.expected, logger.GetLevel())
			}
		})
	}
}

func TestNewLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false, "info")
	logger.Info().Str("session", "ab12").Msg("hello")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Expected a JSON log line, got %q: %v", buf.String(), err)
	}
	if line["session"] != "ab12" || line["message"] != "hello" {
		t.Errorf("Unexpected log line: %v", line)
	}
}

func useConfigDir(t *testing.T, dir string) {
	t.Helper()
	original := *configDir
	*configDir = dir
	t.Cleanup(func() { *configDir = original })
}

func TestInitializeServices(t *testing.T) {
	dir := t.TempDir()
	data, _ := json.Marshal(engine.DefaultGameConfig())
	if err := os.WriteFile(filepath.Join(dir, "classic.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
	useConfigDir(t, dir)

	svcs, err := initializeServices(zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	go svcs.hub.Run()
	defer svcs.hub.Stop()
	defer svcs.sessions.StopAll()

	if svcs.configs.DefaultID() != "classic" {
		t.Errorf("Expected default config classic, got %s", svcs.configs.DefaultID())
	}

	ctx := context.Background()
	info, err := svcs.game.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if svcs.sessions.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", svcs.sessions.Count())
	}

	result, err := svcs.game.ReportPointer(ctx, info.ID, 640, 1280)
	if err != nil {
		t.Fatalf("Failed to report pointer: %v", err)
	}
	if result.PlayerX != 50 {
		t.Errorf("Expected player x 50, got %g", result.PlayerX)
	}
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	useConfigDir(t, "/non/existent/path")

	if _, err := initializeServices(zerolog.Nop()); err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestNewHandler(t *testing.T) {
	useConfigDir(t, t.TempDir())

	svcs, err := initializeServices(zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	go svcs.hub.Run()
	defer svcs.hub.Stop()
	defer svcs.sessions.StopAll()

	handler := newHandler(svcs, mcp.NewClient("http://127.0.0.1:1"), zerolog.Nop())

	// REST API is mounted at the root
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected health 200, got %d", w.Code)
	}

	// MCP only accepts POST
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /mcp, got %d", w.Code)
	}

	// A JSON-RPC ping is answered
	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for POST /mcp, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"jsonrpc":"2.0"`) {
		t.Errorf("Expected JSON-RPC response, got %s", w.Body.String())
	}
}

func TestRunSessionCleanup(t *testing.T) {
	useConfigDir(t, t.TempDir())

	svcs, err := initializeServices(zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	go svcs.hub.Run()
	defer svcs.hub.Stop()
	defer svcs.sessions.StopAll()

	sess, err := svcs.sessions.Create("", svcs.configs.DefaultID(), svcs.configs.GetDefault())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	sess.SetLastAccessed(time.Now().Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runSessionCleanup(ctx, svcs.sessions, 10*time.Millisecond, time.Minute, zerolog.Nop())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for svcs.sessions.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected stale session to be cleaned up")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Cleanup routine did not stop on cancel")
	}
}

func TestNgrokSettingsFromEnv(t *testing.T) {
	t.Setenv("NGROK_ENABLED", "")
	t.Setenv("NGROK_AUTHTOKEN", "")
	t.Setenv("NGROK_AUTH_TOKEN", "")
	t.Setenv("NGROK_DOMAIN", "")

	if _, ok := ngrokSettingsFromEnv(); ok {
		t.Error("Expected ngrok disabled by default")
	}

	t.Setenv("NGROK_ENABLED", "1")
	t.Setenv("NGROK_AUTH_TOKEN", "tok")
	t.Setenv("NGROK_DOMAIN", "run.example.dev")

	settings, ok := ngrokSettingsFromEnv()
	if !ok {
		t.Fatal("Expected ngrok enabled by NGROK_ENABLED")
	}
	if settings.authToken != "tok" || settings.domain != "run.example.dev" {
		t.Errorf("Unexpected settings: %+v", settings)
	}
}

func TestRunNgrokWithoutToken(t *testing.T) {
	err := runNgrok(context.Background(), ngrokSettings{}, http.NotFoundHandler(), zerolog.Nop())
	if err != nil {
		t.Errorf("Expected missing token to be non-fatal, got %v", err)
	}
}
