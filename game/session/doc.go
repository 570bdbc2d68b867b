// Package session provides session management for Tiny Battle Run.
//
// A session is one running game: an engine, the scheduler goroutine that
// drives its timers, and the viewers it broadcasts to. Manager creates
// sessions under 4-character hex IDs (looked up case-insensitively), starts
// their schedulers and stops them again on Delete, on expiry through
// CleanupExpiredSessions, or on shutdown through StopAll.
//
// Sessions are kept in memory only; a restart starts from an empty manager.
//
// Usage:
//
//	manager := session.NewManager(
//		session.WithBroadcaster(hub),
//		session.WithLogger(logger),
//	)
//	defer manager.StopAll()
//
//	sess, err := manager.Create("", "classic", config)
//	if err != nil {
//		log.Fatal(err)
//	}
package session
