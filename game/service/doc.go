// Package service provides the business logic layer for Tiny Battle Run.
//
// GameService is what the transports (REST, WebSocket, MCP) talk to. It
// resolves sessions and configurations and routes every game operation onto
// the owning session's scheduler goroutine, so transports never touch engine
// state directly.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	sessionMgr := session.NewManager(session.WithBroadcaster(hub))
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//	_, err = gameService.ReportPointer(ctx, info.ID, 640, 1280)
package service
