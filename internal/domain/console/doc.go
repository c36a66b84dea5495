// Package console holds the playground's console log.
//
// The log is the only sink the execution engine writes to. It is
// append-only from the engine's perspective; clears happen at the start of a
// rebuild or through an explicit operator action.
//
// Components:
//   - Sink: the Append/Clear contract the engine depends on
//   - Log: in-memory implementation with an optional entry cap
//   - Subscriptions: buffered update feeds for streaming clients
//
// Example Usage:
//
//	log := console.NewLog(1000)
//	updates, cancel := log.Subscribe(64)
//	defer cancel()
//	log.Append(types.NewConsoleEvent(types.LevelLog, "hi", time.Now()))
package console
