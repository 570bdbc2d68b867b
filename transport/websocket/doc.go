// Package websocket carries a session's view commands and game events to
// browser clients and pointer reports back to the session.
//
// The Hub is the view collaborator of every session engine: ViewFor returns
// an engine.View whose calls become messages (create_visual, set_position,
// release_visual, set_level_visible, set_entity_layer_visible, set_currency)
// fanned out to the clients watching that session. Game events follow the
// same path with the event type as the message type.
//
// The hub mirrors each session's visuals. A client that connects mid-game is
// sent a snapshot message first and then the live stream, so it never has to
// reconstruct state from commands it missed.
//
// Wire formats:
//
//   - json (default): text frames, several messages may share one frame
//     separated by newlines
//   - msgpack (?format=msgpack): one binary frame per message
//
// Clients report the pointer with {"type":"pointer","x":px,"viewport_width":vw}
// in either format. The hub hands it to the InputHandler installed with
// SetInputHandler.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run()
//	defer hub.Stop()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"), r.URL.Query().Get("format"))
//	})
//
// All session and mirror state is owned by the Run goroutine; everything else
// talks to it over channels.
package websocket
