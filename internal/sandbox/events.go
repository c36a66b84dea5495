package sandbox

import (
	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

func (in *instance) addEventListener(target *goja.Object) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		typ := call.Argument(0).String()
		fn := call.Argument(1)
		callable, ok := goja.AssertFunction(fn)
		if !ok {
			// handleEvent objects
			if obj, isObj := fn.(*goja.Object); isObj {
				if handle, has := goja.AssertFunction(obj.Get("handleEvent")); has {
					callable = func(_ goja.Value, args ...goja.Value) (goja.Value, error) {
						return handle(obj, args...)
					}
					ok = true
				}
			}
		}
		if !ok {
			return goja.Undefined()
		}

		once := false
		if opts, isObj := call.Argument(2).(*goja.Object); isObj {
			if v := opts.Get("once"); v != nil {
				once = v.ToBoolean()
			}
		}

		byType := in.listeners[target]
		if byType == nil {
			byType = make(map[string][]*listener)
			in.listeners[target] = byType
		}
		for _, l := range byType[typ] {
			if l.fn.SameAs(fn) {
				return goja.Undefined()
			}
		}
		byType[typ] = append(byType[typ], &listener{fn: fn, call: callable, once: once})
		return goja.Undefined()
	}
}

func (in *instance) removeEventListener(target *goja.Object) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		in.removeListener(target, call.Argument(0).String(), call.Argument(1))
		return goja.Undefined()
	}
}

func (in *instance) removeListener(target *goja.Object, typ string, fn goja.Value) {
	list := in.listeners[target][typ]
	for i, l := range list {
		if l.fn.SameAs(fn) {
			in.listeners[target][typ] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (in *instance) dispatchEventMethod(target *goja.Object) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		event, ok := call.Argument(0).(*goja.Object)
		if !ok || event.Get("type") == nil || goja.IsUndefined(event.Get("type")) {
			panic(in.vm.NewTypeError("Failed to execute 'dispatchEvent': parameter 1 is not of type 'Event'."))
		}
		return in.vm.ToValue(in.dispatch(target, event))
	}
}

// propagationPath returns the target followed by the objects an event
// bubbles through: element ancestors, the document, then window
func (in *instance) propagationPath(target *goja.Object) []*goja.Object {
	path := []*goja.Object{target}
	if target == in.window {
		return path
	}
	n, ok := in.nodes[target]
	if !ok {
		return path
	}
	for p := n.Parent; p != nil; p = p.Parent {
		path = append(path, in.wrap(p))
	}
	if n.Type == html.DocumentNode || contains(in.dom.Root(), n) {
		path = append(path, in.window)
	}
	return path
}

// dispatch delivers an event along its propagation path. It returns false
// when a listener canceled it.
func (in *instance) dispatch(target *goja.Object, event *goja.Object) bool {
	typ := event.Get("type").String()
	bubbles := flag(event, "bubbles")

	_ = event.Set("target", target)
	for i, current := range in.propagationPath(target) {
		if i > 0 && !bubbles {
			break
		}
		if flag(event, "cancelBubble") {
			break
		}
		_ = event.Set("currentTarget", current)
		in.invokeListeners(current, typ, event)
	}
	_ = event.Set("currentTarget", goja.Null())

	return !flag(event, "defaultPrevented")
}

func (in *instance) invokeListeners(current *goja.Object, typ string, event *goja.Object) {
	list := append([]*listener(nil), in.listeners[current][typ]...)
	for _, l := range list {
		if l.once {
			in.removeListener(current, typ, l.fn)
		}
		_, err := l.call(current, event)
		in.handleCallbackError(err)
		if in.stopped() || immediateStop(event) {
			return
		}
	}

	handler, ok := goja.AssertFunction(current.Get("on" + typ))
	if !ok {
		return
	}

	var (
		result goja.Value
		err    error
	)
	if typ == "error" && current == in.window {
		// window.onerror receives (message, source, lineno, colno, error)
		result, err = handler(current,
			event.Get("message"), event.Get("filename"), event.Get("lineno"), event.Get("colno"), event.Get("error"))
		if err == nil && result != nil && result.ToBoolean() {
			_ = event.Set("defaultPrevented", true)
		}
	} else {
		result, err = handler(current, event)
		if err == nil && result != nil && result.StrictEquals(in.vm.ToValue(false)) {
			callPreventDefault(event)
		}
	}
	in.handleCallbackError(err)
}

func immediateStop(event *goja.Object) bool {
	return flag(event, "__immediateStop")
}

func flag(obj *goja.Object, key string) bool {
	v := obj.Get(key)
	return v != nil && v.ToBoolean()
}

func callPreventDefault(event *goja.Object) {
	if fn, ok := goja.AssertFunction(event.Get("preventDefault")); ok {
		_, _ = fn(event)
	}
}
