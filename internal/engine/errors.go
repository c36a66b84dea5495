package engine

import "errors"

var ErrAlreadyRunning = errors.New("engine is already running")
