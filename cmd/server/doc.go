// Package main implements the tilekeep world-room server.
//
// tilekeep hosts tile-based multiplayer rooms: one simulated world per
// active WorldRoom, ticking at a fixed rate, synchronized to clients over
// WebSocket. The server delegates account authentication to an external
// AuthService (via pkg/authn) and character/world persistence to a
// relational store (via pkg/persistence); this binary only owns the
// simulation and transport.
//
// # Architecture
//
//   - Configuration loading and validation (via pkg/config)
//   - Logging setup and initialization
//   - Relational persistence (via pkg/persistence, sqlite3 or postgres)
//   - The room registry and per-world simulation loop (via pkg/room)
//   - WebSocket transport and session lifecycle (via pkg/gateway)
//   - Signal handling for SIGINT and SIGTERM with graceful shutdown
//
// # Startup Sequence
//
// 1. Load configuration from environment variables with secure defaults
// 2. Configure logging based on LOG_LEVEL setting
// 3. Open the persistence store and the map model
// 4. Construct the room registry and the session gateway
// 5. Start listening for WebSocket connections
// 6. Handle shutdown signals gracefully: stop the HTTP server and close the
// store; open rooms are not force-disposed
//
// # Environment Variables
//
// See pkg/config for the full set of supported environment variables,
// including SERVER_PORT, DATABASE_DRIVER, DATABASE_DSN, MAP_FILE,
// JWT_SIGNING_KEY, and the room tuning variables (TICK_RATE,
// AUTO_SAVE_INTERVAL, IDLE_WARN_AFTER, IDLE_KICK_AFTER, MAX_PARTY_SIZE).
//
// # Usage
//
// Run the server with default settings:
//
//	./server
//
// Run with custom port and debug logging:
//
//	SERVER_PORT=9000 LOG_LEVEL=debug ./server
package main
