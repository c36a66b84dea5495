// Package ws streams the live console to editor clients over WebSocket.
//
// Each connection subscribes to the console log and the workspace store.
// A single write loop per client serializes console updates, workspace
// changes, replies and keep-alive pings onto the socket.
//
// Message Types (Client → Server):
//   - edit: replace one fragment ({fragment, text}) or the whole bundle
//   - clear: empty the console log
//   - run: force a preview rebuild
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - welcome: client id, workspace snapshot and console backlog
//   - console: one console update (append, clear, or a reset carrying the
//     whole log when the client fell behind)
//   - workspace: the bundle after an edit from any client
//   - ack, pong, error
//
// Example Usage:
//
//	handler := ws.NewHandler(store, eng, metrics, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
