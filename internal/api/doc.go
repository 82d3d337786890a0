// Package api implements the HTTP REST API and WebSocket server for BarVision Core.
//
// This package provides:
//   - REST endpoints for schedule CRUD, Run Now, and execution history
//   - Channel preset management with usage-ranked listings
//   - WebSocket hub for real-time execution event broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between user interfaces (bar-top tablets, the
// office web admin) and the schedule engine + device estate. Run Now
// requests execute synchronously through the engine; lifecycle events
// flow out over MQTT and are relayed to WebSocket clients.
//
// # Graceful Degradation
//
// The server operates without MQTT — the REST surface works fully,
// only the live event relay to WebSocket clients is disabled.
package api
