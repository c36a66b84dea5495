package sandbox

import (
	_ "embed"
	"fmt"

	"github.com/dop251/goja"
)

//go:embed prelude.js
var preludeSource string

var preludeProgram = goja.MustCompile("prelude.js", preludeSource, false)

// Runtime wraps a goja VM with security controls and the trusted browser
// prelude installed. A Runtime serves exactly one instance and is never
// reused after it has run user code.
type Runtime struct {
	vm     *goja.Runtime
	config Config

	// Captured before user code can replace the globals
	stringify      goja.Callable
	event          *goja.Object
	errorEvent     *goja.Object
	rejectionEvent *goja.Object
	mouseEvent     *goja.Object
	domException   *goja.Object
}

// New creates a new sandboxed runtime
func New(config Config) (*Runtime, error) {
	vm := goja.New()

	r := &Runtime{
		vm:     vm,
		config: config,
	}

	if config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}

	if err := r.setupGlobals(); err != nil {
		return nil, err
	}

	return r, nil
}

// VM exposes the underlying goja runtime
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// setupGlobals removes host escape hatches and installs the prelude
func (r *Runtime) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	factory, err := r.vm.RunProgram(preludeProgram)
	if err != nil {
		return fmt.Errorf("load prelude: %w", err)
	}
	install, ok := goja.AssertFunction(factory)
	if !ok {
		return fmt.Errorf("prelude did not evaluate to a function")
	}
	exported, err := install(goja.Undefined(), r.vm.GlobalObject())
	if err != nil {
		return fmt.Errorf("install prelude: %w", err)
	}

	refs := exported.ToObject(r.vm)
	r.event = refs.Get("Event").ToObject(r.vm)
	r.errorEvent = refs.Get("ErrorEvent").ToObject(r.vm)
	r.rejectionEvent = refs.Get("PromiseRejectionEvent").ToObject(r.vm)
	r.mouseEvent = refs.Get("MouseEvent").ToObject(r.vm)
	r.domException = refs.Get("DOMException").ToObject(r.vm)

	if r.stringify, ok = goja.AssertFunction(refs.Get("stringify")); !ok {
		return fmt.Errorf("prelude did not capture JSON.stringify")
	}

	return nil
}

// Close releases the VM
func (r *Runtime) Close() error {
	if r.vm != nil {
		r.vm.ClearInterrupt()
	}
	r.vm = nil
	return nil
}
