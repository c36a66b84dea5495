package sandbox

import (
	"time"

	"github.com/dop251/goja"
)

// minInterval clamps repeating timers so setInterval(fn, 0) cannot spin
const minInterval = 4 * time.Millisecond

type timer struct {
	id       int64
	fn       goja.Callable
	args     []goja.Value
	repeat   bool
	interval time.Duration
	t        *time.Timer
}

func (in *instance) setTimer(call goja.FunctionCall, repeat bool) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		// String handlers are compiled lazily like eval
		code := call.Argument(0).String()
		fn = func(goja.Value, ...goja.Value) (goja.Value, error) {
			return in.vm.RunString(code)
		}
	}

	if in.config.MaxTimers > 0 && len(in.timers) >= in.config.MaxTimers {
		panic(in.domException("QuotaExceededError", "Too many pending timers"))
	}

	delay := time.Duration(call.Argument(1).ToFloat() * float64(time.Millisecond))
	if delay < 0 {
		delay = 0
	}
	if repeat && delay < minInterval {
		delay = minInterval
	}

	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	in.nextTimer++
	t := &timer{
		id:       in.nextTimer,
		fn:       fn,
		args:     args,
		repeat:   repeat,
		interval: delay,
	}
	in.timers[t.id] = t
	in.schedule(t, delay)

	return in.vm.ToValue(t.id)
}

func (in *instance) schedule(t *timer, delay time.Duration) {
	id := t.id
	t.t = time.AfterFunc(delay, func() {
		in.post(func() { in.fire(id) })
	})
}

func (in *instance) fire(id int64) {
	t, ok := in.timers[id]
	if !ok {
		return
	}
	if !t.repeat {
		delete(in.timers, id)
	}

	in.exec(func() error {
		_, err := t.fn(in.window, t.args...)
		return err
	})

	if _, live := in.timers[id]; live && t.repeat && !in.stopped() {
		in.schedule(t, t.interval)
	}
}

func (in *instance) clearTimer(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if t, ok := in.timers[id]; ok {
		if t.t != nil {
			t.t.Stop()
		}
		delete(in.timers, id)
	}
	return goja.Undefined()
}

// requestAnimationFrame is served as a ~60Hz one-shot timer
func (in *instance) requestAnimationFrame(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(in.vm.NewTypeError("Failed to execute 'requestAnimationFrame' on 'Window': The callback provided as parameter 1 is not a function."))
	}
	start := time.Now()
	wrapped := in.vm.ToValue(func(goja.FunctionCall) goja.Value {
		elapsed := float64(time.Since(start)) / float64(time.Millisecond)
		if _, err := fn(goja.Undefined(), in.vm.ToValue(elapsed)); err != nil {
			in.handleCallbackError(err)
		}
		return goja.Undefined()
	})
	return in.setTimer(goja.FunctionCall{Arguments: []goja.Value{wrapped, in.vm.ToValue(16)}}, false)
}

func (in *instance) stopTimers() {
	for id, t := range in.timers {
		if t.t != nil {
			t.t.Stop()
		}
		delete(in.timers, id)
	}
}
