package sandbox

import (
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// bind installs the window surface into the instance's VM
func (in *instance) bind() {
	vm := in.vm
	in.window = vm.GlobalObject()
	vm.SetPromiseRejectionTracker(in.trackRejection)

	in.elementProto = in.newElementPrototype()
	in.document = in.wrap(in.dom.Root())
	in.bindDocument(in.document)

	host := vm.NewObject()
	_ = host.Set("postMessage", in.postMessage)

	w := in.window
	_ = w.Set("window", w)
	_ = w.Set("self", w)
	_ = w.Set("frames", w)
	_ = w.Set("parent", host)
	_ = w.Set("top", host)
	_ = w.Set("frameElement", goja.Null())
	_ = w.Set("document", in.document)
	_ = w.Set("console", in.newConsole())
	_ = w.Set("location", in.newLocation())
	_ = w.Set("navigator", in.newNavigator())

	_ = w.Set("addEventListener", in.addEventListener(w))
	_ = w.Set("removeEventListener", in.removeEventListener(w))
	_ = w.Set("dispatchEvent", in.dispatchEventMethod(w))

	_ = w.Set("setTimeout", func(call goja.FunctionCall) goja.Value { return in.setTimer(call, false) })
	_ = w.Set("setInterval", func(call goja.FunctionCall) goja.Value { return in.setTimer(call, true) })
	_ = w.Set("clearTimeout", in.clearTimer)
	_ = w.Set("clearInterval", in.clearTimer)
	_ = w.Set("requestAnimationFrame", in.requestAnimationFrame)
	_ = w.Set("cancelAnimationFrame", in.clearTimer)

	_ = w.Set("alert", in.dialog("alert", goja.Undefined()))
	_ = w.Set("confirm", in.dialog("confirm", vm.ToValue(false)))
	_ = w.Set("prompt", in.dialog("prompt", goja.Null()))
	_ = w.Set("open", in.open)

	_ = w.DefineAccessorProperty("localStorage", vm.ToValue(in.storageGetter("localStorage", in.local)), nil, goja.FLAG_TRUE, goja.FLAG_TRUE)
	_ = w.DefineAccessorProperty("sessionStorage", vm.ToValue(in.storageGetter("sessionStorage", in.session)), nil, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

func (in *instance) newConsole() *goja.Object {
	console := in.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(level, in.nativeConsole(level))
	}
	return console
}

// nativeConsole is the frame's own developer console
func (in *instance) nativeConsole(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = in.safeString(arg)
		}
		in.log.Debug(strings.Join(parts, " "), zap.String("source", "console"), zap.String("level", level))
		return goja.Undefined()
	}
}

// postMessage serializes data and hands it to the host channel
func (in *instance) postMessage(call goja.FunctionCall) goja.Value {
	target := "/"
	if arg := call.Argument(1); !goja.IsUndefined(arg) {
		if obj, ok := arg.(*goja.Object); ok {
			if v := obj.Get("targetOrigin"); v != nil && !goja.IsUndefined(v) {
				target = v.String()
			}
		} else {
			target = arg.String()
		}
	}

	encoded, err := in.rt.stringify(goja.Undefined(), call.Argument(0))
	if err != nil {
		if isUncatchable(err) {
			panic(err)
		}
		panic(in.domException("DataCloneError", "Failed to execute 'postMessage' on 'Window': the message could not be cloned."))
	}
	data := "null"
	if encoded != nil && !goja.IsUndefined(encoded) {
		data = encoded.String()
	}

	if !in.targetMatches(target) {
		in.log.Debug("postMessage target origin does not match the host origin",
			zap.String("target", target), zap.String("host", in.config.HostOrigin))
		return goja.Undefined()
	}

	msg := Message{
		Source: in.handle,
		Origin: in.origin,
		Target: target,
		Data:   []byte(data),
	}
	select {
	case in.out <- msg:
	case <-in.done:
	}
	return goja.Undefined()
}

func (in *instance) targetMatches(target string) bool {
	switch target {
	case "*":
		return true
	case "/":
		return in.origin == in.config.HostOrigin
	default:
		return strings.TrimSuffix(target, "/") == strings.TrimSuffix(in.config.HostOrigin, "/")
	}
}

// dialog gates alert/confirm/prompt on allow-modals. There is no user to
// answer, so a permitted dialog resolves as dismissed.
func (in *instance) dialog(name string, dismissed goja.Value) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if !in.caps.Has(AllowModals) {
			in.warn("Ignored call to '" + name + "()'. The document is sandboxed, and the 'allow-modals' keyword is not set.")
			return dismissed
		}
		in.log.Info("Dialog opened", zap.String("dialog", name), zap.String("text", in.safeString(call.Argument(0))))
		return dismissed
	}
}

func (in *instance) open(call goja.FunctionCall) goja.Value {
	url := call.Argument(0).String()
	if !in.caps.Has(AllowPopups) {
		in.warn("Blocked opening '" + url + "' in a new window because the request was made in a sandboxed frame whose 'allow-popups' permission is not set.")
		return goja.Null()
	}
	in.log.Info("Popup requested", zap.String("url", url))
	return goja.Null()
}

func (in *instance) storageGetter(name string, area *Storage) func(goja.FunctionCall) goja.Value {
	var cached *goja.Object
	return func(goja.FunctionCall) goja.Value {
		if !in.caps.Has(AllowSameOrigin) || area == nil {
			panic(in.domException("SecurityError",
				"Failed to read the '"+name+"' property from 'Window': The document is sandboxed and lacks the 'allow-same-origin' flag."))
		}
		if cached == nil {
			cached = in.newStorageObject(area)
		}
		return cached
	}
}

func (in *instance) newStorageObject(area *Storage) *goja.Object {
	vm := in.vm
	obj := vm.NewObject()

	_ = obj.Set("getItem", func(call goja.FunctionCall) goja.Value {
		if v, ok := area.Get(call.Argument(0).String()); ok {
			return vm.ToValue(v)
		}
		return goja.Null()
	})
	_ = obj.Set("setItem", func(call goja.FunctionCall) goja.Value {
		if err := area.Set(call.Argument(0).String(), call.Argument(1).String()); err != nil {
			panic(in.domException("QuotaExceededError", "Failed to execute 'setItem' on 'Storage': "+err.Error()))
		}
		return goja.Undefined()
	})
	_ = obj.Set("removeItem", func(call goja.FunctionCall) goja.Value {
		area.Remove(call.Argument(0).String())
		return goja.Undefined()
	})
	_ = obj.Set("clear", func(goja.FunctionCall) goja.Value {
		area.Clear()
		return goja.Undefined()
	})
	_ = obj.Set("key", func(call goja.FunctionCall) goja.Value {
		if k, ok := area.Key(int(call.Argument(0).ToInteger())); ok {
			return vm.ToValue(k)
		}
		return goja.Null()
	})
	_ = obj.DefineAccessorProperty("length", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(area.Len())
	}), nil, goja.FLAG_TRUE, goja.FLAG_TRUE)

	return obj
}

func (in *instance) newLocation() *goja.Object {
	loc := in.vm.NewObject()
	_ = loc.Set("href", documentURL)
	_ = loc.Set("protocol", "about:")
	_ = loc.Set("origin", in.origin)
	_ = loc.Set("pathname", "srcdoc")
	_ = loc.Set("search", "")
	_ = loc.Set("hash", "")
	_ = loc.Set("reload", func(goja.FunctionCall) goja.Value {
		in.warn("location.reload() is not supported in the sandbox.")
		return goja.Undefined()
	})
	_ = loc.Set("toString", func(goja.FunctionCall) goja.Value {
		return in.vm.ToValue(documentURL)
	})
	return loc
}

func (in *instance) newNavigator() *goja.Object {
	nav := in.vm.NewObject()
	_ = nav.Set("userAgent", "Mozilla/5.0 (livebox sandbox)")
	_ = nav.Set("language", "en-US")
	_ = nav.Set("onLine", false)
	if in.caps.Has(AllowPresentation) {
		presentation := in.vm.NewObject()
		_ = presentation.Set("defaultRequest", goja.Null())
		_ = nav.Set("presentation", presentation)
	}
	return nav
}
