/*
Package sandbox provides the sandboxed execution frame for assembled documents.

# Overview

A Frame executes one untrusted document at a time inside a goja JavaScript
VM with an emulated browser surface. Each loaded document becomes an
instance with:

  - Its own VM and event loop goroutine
  - A live DOM parsed from the document (goquery / x/net/html)
  - Timers, events, promise rejection tracking and a native console
  - A per-task execution watchdog and a bounded call stack
  - A capability allow-list modelled on the iframe sandbox attribute

# Architecture

 1. Runtime: goja VM with the trusted prelude installed, prewarmed by the Pool
 2. DOM: parsed document tree, CSS and XPath queries, change journal
 3. Instance: loop owning the VM; scripts, timers and host tasks run here
 4. Frame: lifecycle Empty -> Loading -> Running -> TornDown -> Empty

# Boundary

The only way out of an instance is parent.postMessage. Payloads are
serialized with the VM's own JSON encoder and delivered as Message values on
Frame.Messages, tagged with the source handle so the host can drop messages
from instances that are no longer live.

# Security Model

Sandboxed code cannot:
  - Reach the filesystem, network or host process
  - Touch the host's VM state; every instance gets a fresh runtime
  - Run past the execution timeout or overflow the host stack
  - Use modals, popups, form submission or origin-scoped storage unless the
    matching capability is granted

# Usage Example

	frame, err := sandbox.NewFrame(sandbox.DefaultConfig(), logger)
	if err != nil {
		return err
	}
	defer frame.Close()

	handle, err := frame.Load(ctx, document.Assemble(bundle))
	if err != nil {
		return err
	}

	for msg := range frame.Messages() {
		if msg.Source == handle {
			// relay
		}
	}
*/
package sandbox
