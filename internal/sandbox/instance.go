package sandbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// documentURL is the script name reported in error events, matching what a
// srcdoc frame reports
const documentURL = "about:srcdoc"

const maxRejectionRounds = 16

type task func()

type listener struct {
	fn   goja.Value
	call goja.Callable
	once bool
}

// instance is one live document: a VM, its DOM and the loop goroutine that
// owns both. No other goroutine touches the VM except through Interrupt.
type instance struct {
	handle  Handle
	config  Config
	caps    Capabilities
	origin  string
	log     *zap.Logger
	rt      *Runtime
	vm      *goja.Runtime
	dom     *DOM
	source  string
	local   *Storage
	session *Storage
	out     chan<- Message

	tasks  chan task
	done   chan struct{}
	exited chan struct{}
	once   sync.Once

	// Owned by the loop goroutine
	window       *goja.Object
	document     *goja.Object
	elementProto *goja.Object
	wrappers     map[*html.Node]*goja.Object
	nodes        map[*goja.Object]*html.Node
	fragments    map[*html.Node]struct{}
	listeners    map[*goja.Object]map[string][]*listener
	timers       map[int64]*timer
	nextTimer    int64
	rejections   []*goja.Promise
	readyState   string
	active       *html.Node
	depth        int
	reporting    bool
}

type instanceParams struct {
	handle  Handle
	config  Config
	runtime *Runtime
	dom     *DOM
	source  string
	out     chan<- Message
	local   *Storage
	session *Storage
	log     *zap.Logger
}

func newInstance(p instanceParams) *instance {
	return &instance{
		handle:     p.handle,
		config:     p.config,
		caps:       p.config.Capabilities,
		origin:     p.config.Capabilities.Origin(p.config.HostOrigin),
		log:        p.log.With(zap.String("sandbox", p.handle.ID), zap.Uint64("generation", p.handle.Generation)),
		rt:         p.runtime,
		vm:         p.runtime.VM(),
		dom:        p.dom,
		source:     p.source,
		local:      p.local,
		session:    p.session,
		out:        p.out,
		tasks:      make(chan task, 64),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
		wrappers:   make(map[*html.Node]*goja.Object),
		nodes:      make(map[*goja.Object]*html.Node),
		fragments:  make(map[*html.Node]struct{}),
		listeners:  make(map[*goja.Object]map[string][]*listener),
		timers:     make(map[int64]*timer),
		readyState: "loading",
	}
}

// run is the instance event loop
func (in *instance) run() {
	defer close(in.exited)
	defer in.rt.Close()
	defer in.stopTimers()
	defer func() {
		if r := recover(); r != nil {
			in.log.Error("Sandbox instance crashed", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	in.bind()
	in.runScripts()
	in.finishLoading()

	for {
		select {
		case <-in.done:
			return
		case fn := <-in.tasks:
			if in.stopped() {
				return
			}
			fn()
		}
	}
}

// stop tears the instance down. Safe to call more than once and from any
// goroutine.
func (in *instance) stop() {
	in.once.Do(func() {
		close(in.done)
		in.vm.Interrupt(ErrTornDown)
	})
}

func (in *instance) stopped() bool {
	select {
	case <-in.done:
		return true
	default:
		return false
	}
}

func (in *instance) crashed() bool {
	select {
	case <-in.exited:
		return !in.stopped()
	default:
		return false
	}
}

// post queues a task on the loop. It fails once the instance is torn down.
func (in *instance) post(fn task) bool {
	select {
	case in.tasks <- fn:
		return true
	case <-in.done:
		return false
	}
}

// call runs fn on the loop and waits for it
func (in *instance) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	queued := func() {
		defer close(finished)
		fn()
	}

	select {
	case in.tasks <- queued:
	case <-in.done:
		return ErrTornDown
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-in.exited:
		return ErrTornDown
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (in *instance) runScripts() {
	scripts := in.dom.Scripts()
	if len(scripts) > 0 && !in.caps.Has(AllowScripts) {
		in.warn("Blocked script execution in 'about:srcdoc' because the document's frame is sandboxed and the 'allow-scripts' permission is not set.")
		return
	}

	cursor := 0
	for _, n := range scripts {
		if in.stopped() {
			return
		}

		body := textContent(n)
		line := 1
		if idx := strings.Index(in.source[cursor:], body); idx >= 0 {
			line += strings.Count(in.source[:cursor+idx], "\n")
			cursor += idx + len(body)
		}

		if src, ok := attr(n, "src"); ok {
			in.warn("Script from '" + src + "' was not loaded: the sandbox has no network access.")
			continue
		}
		if typ, _ := attr(n, "type"); !isClassicScript(typ) {
			if strings.EqualFold(strings.TrimSpace(typ), "module") {
				in.warn("Module scripts are not supported in the sandbox.")
			}
			continue
		}

		in.exec(func() error {
			return in.evaluate(body, line)
		})
	}
}

func isClassicScript(typ string) bool {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text/javascript", "application/javascript", "text/ecmascript", "application/ecmascript":
		return true
	default:
		return false
	}
}

// evaluate runs a script block. The source is padded so parser and stack
// positions are document line numbers.
func (in *instance) evaluate(body string, line int) error {
	src := strings.Repeat("\n", line-1) + body
	ast, err := parser.ParseFile(nil, documentURL, src, 0, parser.WithDisableSourceMaps)
	if err != nil {
		return err
	}
	program, err := goja.CompileAST(ast, false)
	if err != nil {
		return err
	}
	_, err = in.vm.RunProgram(program)
	return err
}

func (in *instance) finishLoading() {
	in.readyState = "interactive"
	in.exec(func() error {
		in.dispatch(in.document, in.newEvent(in.rt.event, "DOMContentLoaded", map[string]interface{}{"bubbles": true}))
		return nil
	})

	in.readyState = "complete"
	in.exec(func() error {
		in.dispatch(in.window, in.newEvent(in.rt.event, "load", nil))
		return nil
	})
}

// exec runs one macrotask: fn under the watchdog, then error reporting and
// the unhandled rejection checkpoint.
func (in *instance) exec(fn func() error) {
	if in.stopped() {
		return
	}
	if err := in.guarded(fn); err != nil {
		in.reportError(err)
	}
	in.flushRejections()
}

// guarded arms the watchdog around the outermost entry into the VM and
// converts uncatchable VM panics into errors
func (in *instance) guarded(fn func() error) (err error) {
	in.depth++
	outer := in.depth == 1

	var watchdog *time.Timer
	if outer && in.config.Timeout > 0 {
		watchdog = time.AfterFunc(in.config.Timeout, func() {
			in.vm.Interrupt(ErrExecutionTimeout)
		})
	}

	defer func() {
		in.depth--
		if outer {
			if watchdog != nil {
				watchdog.Stop()
			}
			if !in.stopped() {
				in.vm.ClearInterrupt()
			}
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && isUncatchable(e) {
				err = e
				return
			}
			panic(r)
		}
	}()

	return fn()
}

func isUncatchable(err error) bool {
	var interrupted *goja.InterruptedError
	var overflow *goja.StackOverflowError
	return errors.As(err, &interrupted) || errors.As(err, &overflow)
}

// handleCallbackError deals with an error returned from a callback into
// user code. Interrupts abort the whole task; anything else is reported the
// way a browser reports exceptions escaping a listener.
func (in *instance) handleCallbackError(err error) {
	if err == nil {
		return
	}
	if isUncatchable(err) && in.depth > 0 {
		panic(err)
	}
	in.reportError(err)
}

// reportError dispatches an ErrorEvent on window for an uncaught error
func (in *instance) reportError(err error) {
	if in.stopped() || errors.Is(err, ErrTornDown) {
		return
	}

	message, pos, value := in.describeError(err)
	if in.reporting {
		in.log.Debug("Error while reporting error", zap.String("message", message))
		return
	}

	in.reporting = true
	defer func() { in.reporting = false }()

	event := in.newEvent(in.rt.errorEvent, "error", map[string]interface{}{
		"cancelable": true,
		"message":    message,
		"filename":   pos.Filename,
		"lineno":     pos.Line,
		"colno":      pos.Column,
		"error":      value,
	})

	notCanceled := true
	if dispatchErr := in.guarded(func() error {
		notCanceled = in.dispatch(in.window, event)
		return nil
	}); dispatchErr != nil {
		in.log.Debug("Error listener aborted", zap.Error(dispatchErr))
	}

	if notCanceled {
		in.log.Debug(message, zap.String("source", "native"), zap.Int("line", pos.Line))
	}
}

func (in *instance) describeError(err error) (string, file.Position, goja.Value) {
	var (
		interrupted *goja.InterruptedError
		overflow    *goja.StackOverflowError
		exception   *goja.Exception
		list        parser.ErrorList
		syntax      *parser.Error
		compile     *goja.CompilerSyntaxError
	)

	switch {
	case errors.As(err, &interrupted):
		return "Uncaught Error: " + ErrExecutionTimeout.Error(), stackPosition(interrupted.Stack()), goja.Null()
	case errors.As(err, &overflow):
		return "Uncaught RangeError: Maximum call stack size exceeded", stackPosition(overflow.Stack()), goja.Null()
	case errors.As(err, &exception):
		value := exception.Value()
		return "Uncaught " + in.safeString(value), stackPosition(exception.Stack()), value
	case errors.As(err, &list) && len(list) > 0:
		return in.syntaxError(list[0].Message, list[0].Position)
	case errors.As(err, &syntax):
		return in.syntaxError(syntax.Message, syntax.Position)
	case errors.As(err, &compile):
		var pos file.Position
		if compile.File != nil {
			pos = compile.File.Position(compile.Offset)
		}
		return in.syntaxError(compile.Message, pos)
	default:
		return "Uncaught " + err.Error(), file.Position{Filename: documentURL}, goja.Null()
	}
}

func (in *instance) syntaxError(message string, pos file.Position) (string, file.Position, goja.Value) {
	if pos.Filename == "" {
		pos.Filename = documentURL
	}
	value := goja.Value(goja.Null())
	if ctor, ok := goja.AssertConstructor(in.vm.Get("SyntaxError")); ok {
		if obj, err := ctor(nil, in.vm.ToValue(message)); err == nil {
			value = obj
		}
	}
	return "Uncaught SyntaxError: " + message, pos, value
}

// stackPosition picks the innermost frame that belongs to the document
func stackPosition(frames []goja.StackFrame) file.Position {
	for i := range frames {
		if frames[i].SrcName() == documentURL {
			return frames[i].Position()
		}
	}
	return file.Position{Filename: documentURL}
}

// safeString converts a thrown value without letting a hostile toString
// escape
func (in *instance) safeString(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	var s string
	if ex := in.vm.Try(func() { s = v.String() }); ex != nil {
		return "exception"
	}
	return s
}

// trackRejection is installed as the VM's promise rejection tracker
func (in *instance) trackRejection(p *goja.Promise, op goja.PromiseRejectionOperation) {
	switch op {
	case goja.PromiseRejectionReject:
		in.rejections = append(in.rejections, p)
	case goja.PromiseRejectionHandle:
		for i, pending := range in.rejections {
			if pending == p {
				in.rejections = append(in.rejections[:i], in.rejections[i+1:]...)
				break
			}
		}
	}
}

// flushRejections dispatches unhandledrejection for promises still
// unhandled after the microtask checkpoint
func (in *instance) flushRejections() {
	for round := 0; round < maxRejectionRounds && len(in.rejections) > 0; round++ {
		if in.stopped() {
			return
		}

		pending := in.rejections
		in.rejections = nil

		for _, p := range pending {
			event := in.newEvent(in.rt.rejectionEvent, "unhandledrejection", map[string]interface{}{
				"cancelable": true,
				"promise":    in.vm.ToValue(p),
				"reason":     p.Result(),
			})

			notCanceled := true
			err := in.guarded(func() error {
				notCanceled = in.dispatch(in.window, event)
				return nil
			})
			if err != nil {
				in.reportError(err)
			}
			if notCanceled {
				in.log.Debug("Uncaught (in promise)", zap.String("reason", in.safeString(p.Result())))
			}
		}
	}
}

// newEvent constructs an event with one of the prelude constructors
func (in *instance) newEvent(ctor *goja.Object, typ string, init map[string]interface{}) *goja.Object {
	options := in.vm.NewObject()
	for k, v := range init {
		_ = options.Set(k, v)
	}
	event, err := in.vm.New(ctor, in.vm.ToValue(typ), options)
	if err != nil {
		panic(err)
	}
	_ = event.Set("isTrusted", true)
	return event
}

// domException builds a DOMException for throwing from native code
func (in *instance) domException(name, message string) *goja.Object {
	obj, err := in.vm.New(in.rt.domException, in.vm.ToValue(message), in.vm.ToValue(name))
	if err != nil {
		panic(err)
	}
	return obj
}

// warn writes a native console warning, the message a browser would print
// in the frame's developer tools
func (in *instance) warn(message string) {
	in.log.Warn(message, zap.String("source", "native"))
}
