// Package gateway implements the SessionGateway: the WebSocket-facing edge
// that authenticates an inbound connection, joins it to a room, and ferries
// input and outbound patches across the wire.
//
// # Connection Lifecycle
//
//   - upgrade the HTTP request to a WebSocket
//   - read and validate the join envelope (token, world save ID, character
//     name)
//   - decode the bearer token via authn.Service
//   - hand the join to room.Registry.JoinOrCreate
//   - on success, run a read pump and a write pump until the connection
//     closes
//
// A failed join closes the socket with one of the codes defined in
// pkg/room: CloseAuthFailed, CloseNotOwner, CloseWorldNotFound,
// CloseRoomFull, CloseJoinFailed. CloseIdleTimeout is used later, when a
// room kicks an idle session.
//
// # Operational Endpoints
//
//   - /ws for the game connection
//   - /health, /ready, /live for health checks
//   - /metrics for Prometheus scraping
package gateway
