// Package mcp exposes the game to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool calls the REST API of a running server,
// so an agent and a browser can share the same session.
//
// Tools:
//   - create_session: create a session, optionally with a config_id
//   - list_sessions / get_session
//   - game_state: level, currency, entity positions and a character map
//   - move_pointer: steer by reporting x (and optionally viewport_width)
//   - reset_game: back to the meadow
//   - list_configs
//   - game_instructions
//
// The server binary serves the tools over HTTP at /mcp, or over stdio with
// the -stdio flag.
package mcp
