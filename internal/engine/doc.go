/*
Package engine connects fragment edits to the sandbox and the console log.

# Components

  - Scheduler: latest-wins mailbox, value-level change detection, debounce
    with a bounded wait, clear then assemble then load
  - Relay: validates boundary messages from the live handle and appends
    ConsoleEvents stamped with their receipt time
  - Engine: one goroutine selecting over edits, the debounce timer and the
    frame's message channel

# Ordering

The engine goroutine is the only writer to the log besides explicit operator
clears. A rebuild clears the log, loads the new document and switches the
relay to the new handle before the next message is read, so messages still
queued from an older instance are dropped as stale.

# Usage Example

	eng := engine.New(frame, consoleLog, engine.Options{Debounce: 250 * time.Millisecond}, logger)
	go eng.Run(ctx)

	eng.Submit(types.SourceBundle{Script: "console.log('hi')"})
*/
package engine
