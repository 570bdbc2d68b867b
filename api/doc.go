// Package api provides the HTTP REST API for the game server.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"config_id": "frenzy"} optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session with its game state
//   - DELETE /api/sessions/{id} - Stop a session's timers and remove it
//
// Game:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/pointer - Report the pointer: {"x": 320, "viewport_width": 1280}
//   - POST /api/sessions/{id}/reset - Back to the meadow with zero currency
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - GET /api/configs/{name} - Get one configuration (extension optional)
//   - POST /api/configs - Save a configuration
//
// Other:
//   - GET /health
//   - GET /ws?session=ID[&format=msgpack] - View stream and pointer input
//   - everything else is served from the static directory
//
// Errors are returned as {"error": "message"}. Unknown sessions and configs
// map to 404, bad pointer reports and invalid configs to 400, and a session
// stopped mid-request to 410.
package api
