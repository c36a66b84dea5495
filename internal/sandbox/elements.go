package sandbox

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type nodeMethod func(n *html.Node, call goja.FunctionCall) goja.Value

// wrap returns the JS object for a node, creating it once per node
func (in *instance) wrap(n *html.Node) *goja.Object {
	if n == nil {
		return nil
	}
	if obj, ok := in.wrappers[n]; ok {
		return obj
	}
	obj := in.vm.CreateObject(in.elementProto)
	in.wrappers[n] = obj
	in.nodes[obj] = n
	return obj
}

func (in *instance) wrapValue(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	return in.wrap(n)
}

func (in *instance) wrapAll(nodes []*html.Node) goja.Value {
	items := make([]interface{}, len(nodes))
	for i, n := range nodes {
		items[i] = in.wrap(n)
	}
	return in.vm.NewArray(items...)
}

// nodeOf resolves a JS value back to its node, throwing a TypeError for
// anything that is not one
func (in *instance) nodeOf(v goja.Value, method string) *html.Node {
	if obj, ok := v.(*goja.Object); ok {
		if n, ok := in.nodes[obj]; ok {
			return n
		}
	}
	panic(in.vm.NewTypeError("Failed to execute '%s' on 'Node': parameter is not of type 'Node'.", method))
}

func (in *instance) this(call goja.FunctionCall) *html.Node {
	if obj, ok := call.This.(*goja.Object); ok {
		if n, ok := in.nodes[obj]; ok {
			return n
		}
	}
	panic(in.vm.NewTypeError("Illegal invocation"))
}

func (in *instance) newElementPrototype() *goja.Object {
	vm := in.vm
	proto := vm.NewObject()

	accessor := func(name string, get func(n *html.Node) goja.Value, set func(n *html.Node, v goja.Value)) {
		getter := vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return get(in.this(call))
		})
		var setter goja.Value
		if set != nil {
			setter = vm.ToValue(func(call goja.FunctionCall) goja.Value {
				set(in.this(call), call.Argument(0))
				return goja.Undefined()
			})
		}
		_ = proto.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE)
	}
	method := func(name string, fn nodeMethod) {
		_ = proto.Set(name, func(call goja.FunctionCall) goja.Value {
			return fn(in.this(call), call)
		})
	}
	str := func(s string) goja.Value { return vm.ToValue(s) }

	accessor("nodeType", func(n *html.Node) goja.Value {
		if _, fragment := in.fragments[n]; fragment {
			return vm.ToValue(11)
		}
		return vm.ToValue(nodeType(n))
	}, nil)
	accessor("nodeName", func(n *html.Node) goja.Value { return str(nodeName(n)) }, nil)
	accessor("tagName", func(n *html.Node) goja.Value {
		if n.Type != html.ElementNode {
			return goja.Undefined()
		}
		return str(strings.ToUpper(n.Data))
	}, nil)
	accessor("id", func(n *html.Node) goja.Value {
		v, _ := attr(n, "id")
		return str(v)
	}, func(n *html.Node, v goja.Value) { in.setAttribute(n, "id", v.String()) })
	accessor("className", func(n *html.Node) goja.Value {
		v, _ := attr(n, "class")
		return str(v)
	}, func(n *html.Node, v goja.Value) { in.setAttribute(n, "class", v.String()) })

	text := func(n *html.Node) goja.Value {
		if n.Type == html.DocumentNode {
			return goja.Null()
		}
		return str(textContent(n))
	}
	setText := func(n *html.Node, v goja.Value) {
		if n.Type == html.DocumentNode {
			return
		}
		s := ""
		if !goja.IsNull(v) && !goja.IsUndefined(v) {
			s = v.String()
		}
		setTextContent(n, s)
		in.dom.RecordChange(DOMChange{Type: "set_text", Node: describe(n), Value: s})
	}
	accessor("textContent", text, setText)
	accessor("innerText", text, setText)
	accessor("nodeValue", func(n *html.Node) goja.Value {
		if n.Type == html.TextNode || n.Type == html.CommentNode {
			return str(n.Data)
		}
		return goja.Null()
	}, func(n *html.Node, v goja.Value) {
		if n.Type == html.TextNode || n.Type == html.CommentNode {
			n.Data = v.String()
		}
	})
	accessor("innerHTML", func(n *html.Node) goja.Value { return str(innerHTML(n)) },
		func(n *html.Node, v goja.Value) {
			markup := v.String()
			if err := setInnerHTML(n, markup); err != nil {
				panic(in.domException("SyntaxError", err.Error()))
			}
			in.dom.RecordChange(DOMChange{Type: "set_html", Node: describe(n), Value: markup})
		})
	accessor("outerHTML", func(n *html.Node) goja.Value { return str(outerHTML(n)) }, nil)
	accessor("value", func(n *html.Node) goja.Value { return str(formValue(n)) },
		func(n *html.Node, v goja.Value) {
			in.setValue(n, v.String())
		})
	accessor("checked", func(n *html.Node) goja.Value {
		_, ok := attr(n, "checked")
		return vm.ToValue(ok)
	}, func(n *html.Node, v goja.Value) { in.toggleAttribute(n, "checked", v.ToBoolean()) })
	accessor("disabled", func(n *html.Node) goja.Value {
		_, ok := attr(n, "disabled")
		return vm.ToValue(ok)
	}, func(n *html.Node, v goja.Value) { in.toggleAttribute(n, "disabled", v.ToBoolean()) })

	accessor("parentNode", func(n *html.Node) goja.Value { return in.wrapValue(n.Parent) }, nil)
	accessor("parentElement", func(n *html.Node) goja.Value {
		if n.Parent == nil || n.Parent.Type != html.ElementNode {
			return goja.Null()
		}
		return in.wrap(n.Parent)
	}, nil)
	accessor("children", func(n *html.Node) goja.Value { return in.wrapAll(elementChildren(n)) }, nil)
	accessor("childElementCount", func(n *html.Node) goja.Value { return vm.ToValue(len(elementChildren(n))) }, nil)
	accessor("childNodes", func(n *html.Node) goja.Value {
		var nodes []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			nodes = append(nodes, c)
		}
		return in.wrapAll(nodes)
	}, nil)
	accessor("firstChild", func(n *html.Node) goja.Value { return in.wrapValue(n.FirstChild) }, nil)
	accessor("lastChild", func(n *html.Node) goja.Value { return in.wrapValue(n.LastChild) }, nil)
	accessor("nextSibling", func(n *html.Node) goja.Value { return in.wrapValue(n.NextSibling) }, nil)
	accessor("previousSibling", func(n *html.Node) goja.Value { return in.wrapValue(n.PrevSibling) }, nil)
	accessor("firstElementChild", func(n *html.Node) goja.Value {
		return in.wrapValue(nextElement(n.FirstChild, func(c *html.Node) *html.Node { return c.NextSibling }))
	}, nil)
	accessor("nextElementSibling", func(n *html.Node) goja.Value {
		return in.wrapValue(nextElement(n.NextSibling, func(c *html.Node) *html.Node { return c.NextSibling }))
	}, nil)
	accessor("previousElementSibling", func(n *html.Node) goja.Value {
		return in.wrapValue(nextElement(n.PrevSibling, func(c *html.Node) *html.Node { return c.PrevSibling }))
	}, nil)
	accessor("isConnected", func(n *html.Node) goja.Value { return vm.ToValue(contains(in.dom.Root(), n)) }, nil)
	accessor("ownerDocument", func(n *html.Node) goja.Value {
		if n.Type == html.DocumentNode {
			return goja.Null()
		}
		return in.document
	}, nil)
	accessor("style", func(n *html.Node) goja.Value {
		return vm.NewDynamicObject(&styleDeclaration{in: in, n: n})
	}, nil)
	accessor("classList", func(n *html.Node) goja.Value {
		return vm.NewDynamicObject(&tokenList{in: in, n: n})
	}, nil)

	method("getAttribute", func(n *html.Node, call goja.FunctionCall) goja.Value {
		if v, ok := attr(n, strings.ToLower(call.Argument(0).String())); ok {
			return str(v)
		}
		return goja.Null()
	})
	method("setAttribute", func(n *html.Node, call goja.FunctionCall) goja.Value {
		in.setAttribute(n, strings.ToLower(call.Argument(0).String()), call.Argument(1).String())
		return goja.Undefined()
	})
	method("removeAttribute", func(n *html.Node, call goja.FunctionCall) goja.Value {
		name := strings.ToLower(call.Argument(0).String())
		removeAttr(n, name)
		in.dom.RecordChange(DOMChange{Type: "remove_attribute", Node: describe(n), Property: name})
		return goja.Undefined()
	})
	method("hasAttribute", func(n *html.Node, call goja.FunctionCall) goja.Value {
		_, ok := attr(n, strings.ToLower(call.Argument(0).String()))
		return vm.ToValue(ok)
	})
	method("toggleAttribute", func(n *html.Node, call goja.FunctionCall) goja.Value {
		name := strings.ToLower(call.Argument(0).String())
		_, has := attr(n, name)
		on := !has
		if force := call.Argument(1); !goja.IsUndefined(force) {
			on = force.ToBoolean()
		}
		in.toggleAttribute(n, name, on)
		return vm.ToValue(on)
	})

	method("appendChild", func(n *html.Node, call goja.FunctionCall) goja.Value {
		child := in.nodeOf(call.Argument(0), "appendChild")
		in.insert(n, child, nil)
		return call.Argument(0)
	})
	method("append", func(n *html.Node, call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			in.insert(n, in.nodeOrText(arg), nil)
		}
		return goja.Undefined()
	})
	method("prepend", func(n *html.Node, call goja.FunctionCall) goja.Value {
		first := n.FirstChild
		for _, arg := range call.Arguments {
			in.insert(n, in.nodeOrText(arg), first)
		}
		return goja.Undefined()
	})
	method("insertBefore", func(n *html.Node, call goja.FunctionCall) goja.Value {
		child := in.nodeOf(call.Argument(0), "insertBefore")
		var ref *html.Node
		if r := call.Argument(1); !goja.IsNull(r) && !goja.IsUndefined(r) {
			ref = in.nodeOf(r, "insertBefore")
			if ref.Parent != n {
				panic(in.domException("NotFoundError", "The node before which the new node is to be inserted is not a child of this node."))
			}
		}
		in.insert(n, child, ref)
		return call.Argument(0)
	})
	method("removeChild", func(n *html.Node, call goja.FunctionCall) goja.Value {
		child := in.nodeOf(call.Argument(0), "removeChild")
		if child.Parent != n {
			panic(in.domException("NotFoundError", "The node to be removed is not a child of this node."))
		}
		in.detach(child)
		return call.Argument(0)
	})
	method("replaceChildren", func(n *html.Node, call goja.FunctionCall) goja.Value {
		removeChildren(n)
		in.dom.RecordChange(DOMChange{Type: "remove", Node: describe(n), Property: "children"})
		for _, arg := range call.Arguments {
			in.insert(n, in.nodeOrText(arg), nil)
		}
		return goja.Undefined()
	})
	method("remove", func(n *html.Node, call goja.FunctionCall) goja.Value {
		if n.Parent != nil {
			in.detach(n)
		}
		return goja.Undefined()
	})
	method("cloneNode", func(n *html.Node, call goja.FunctionCall) goja.Value {
		return in.wrap(cloneNode(n, call.Argument(0).ToBoolean()))
	})
	method("contains", func(n *html.Node, call goja.FunctionCall) goja.Value {
		other := call.Argument(0)
		if goja.IsNull(other) || goja.IsUndefined(other) {
			return vm.ToValue(false)
		}
		return vm.ToValue(contains(n, in.nodeOf(other, "contains")))
	})
	method("hasChildNodes", func(n *html.Node, call goja.FunctionCall) goja.Value {
		return vm.ToValue(n.FirstChild != nil)
	})

	method("querySelector", func(n *html.Node, call goja.FunctionCall) goja.Value {
		nodes := in.query(n, call.Argument(0).String(), "querySelector")
		if len(nodes) == 0 {
			return goja.Null()
		}
		return in.wrap(nodes[0])
	})
	method("querySelectorAll", func(n *html.Node, call goja.FunctionCall) goja.Value {
		return in.wrapAll(in.query(n, call.Argument(0).String(), "querySelectorAll"))
	})
	method("matches", func(n *html.Node, call goja.FunctionCall) goja.Value {
		sel := in.compile(call.Argument(0).String(), "matches")
		return vm.ToValue(n.Type == html.ElementNode && sel.Match(n))
	})
	method("closest", func(n *html.Node, call goja.FunctionCall) goja.Value {
		sel := in.compile(call.Argument(0).String(), "closest")
		for p := n; p != nil; p = p.Parent {
			if p.Type == html.ElementNode && sel.Match(p) {
				return in.wrap(p)
			}
		}
		return goja.Null()
	})
	method("getElementsByTagName", func(n *html.Node, call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(call.Argument(0).String())
		return in.wrapAll(descendants(n, func(c *html.Node) bool {
			return c.Type == html.ElementNode && (tag == "*" || c.Data == tag)
		}))
	})
	method("getElementsByClassName", func(n *html.Node, call goja.FunctionCall) goja.Value {
		wanted := strings.Fields(call.Argument(0).String())
		return in.wrapAll(descendants(n, func(c *html.Node) bool {
			if c.Type != html.ElementNode || len(wanted) == 0 {
				return false
			}
			for _, class := range wanted {
				if !hasClass(c, class) {
					return false
				}
			}
			return true
		}))
	})

	_ = proto.Set("addEventListener", func(call goja.FunctionCall) goja.Value {
		in.this(call)
		return in.addEventListener(call.This.(*goja.Object))(call)
	})
	_ = proto.Set("removeEventListener", func(call goja.FunctionCall) goja.Value {
		in.this(call)
		return in.removeEventListener(call.This.(*goja.Object))(call)
	})
	_ = proto.Set("dispatchEvent", func(call goja.FunctionCall) goja.Value {
		in.this(call)
		return in.dispatchEventMethod(call.This.(*goja.Object))(call)
	})

	method("click", func(n *html.Node, call goja.FunctionCall) goja.Value {
		in.click(n)
		return goja.Undefined()
	})
	method("focus", func(n *html.Node, call goja.FunctionCall) goja.Value {
		in.focus(n)
		return goja.Undefined()
	})
	method("blur", func(n *html.Node, call goja.FunctionCall) goja.Value {
		if in.active == n {
			in.focus(nil)
		}
		return goja.Undefined()
	})
	method("submit", func(n *html.Node, call goja.FunctionCall) goja.Value {
		if n.DataAtom == atom.Form {
			in.submit(n, false)
		}
		return goja.Undefined()
	})
	method("requestSubmit", func(n *html.Node, call goja.FunctionCall) goja.Value {
		if n.DataAtom == atom.Form {
			in.submit(n, true)
		}
		return goja.Undefined()
	})
	method("reset", func(n *html.Node, call goja.FunctionCall) goja.Value {
		if n.DataAtom == atom.Form {
			in.dispatch(in.wrap(n), in.newEvent(in.rt.event, "reset", map[string]interface{}{"bubbles": true, "cancelable": true}))
		}
		return goja.Undefined()
	})

	return proto
}

// bindDocument adds the document-only members to the document wrapper
func (in *instance) bindDocument(doc *goja.Object) {
	vm := in.vm

	_ = doc.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		return in.wrapValue(in.dom.ElementByID(call.Argument(0).String()))
	})
	_ = doc.Set("createElement", func(call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(call.Argument(0).String())
		if tag == "" || strings.ContainsAny(tag, " <>/\"'=") {
			panic(in.domException("InvalidCharacterError", "The tag name provided ('"+tag+"') is not a valid name."))
		}
		return in.wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
	})
	_ = doc.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		return in.wrap(&html.Node{Type: html.TextNode, Data: call.Argument(0).String()})
	})
	_ = doc.Set("createComment", func(call goja.FunctionCall) goja.Value {
		return in.wrap(&html.Node{Type: html.CommentNode, Data: call.Argument(0).String()})
	})
	_ = doc.Set("createDocumentFragment", func(call goja.FunctionCall) goja.Value {
		// Fragments are modelled as detached containers
		fragment := &html.Node{Type: html.ElementNode, Data: "template", DataAtom: atom.Template}
		in.fragments[fragment] = struct{}{}
		return in.wrap(fragment)
	})
	_ = doc.Set("hasFocus", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(true)
	})

	getter := func(name string, get func() goja.Value) {
		_ = doc.DefineAccessorProperty(name, vm.ToValue(func(goja.FunctionCall) goja.Value { return get() }), nil, goja.FLAG_TRUE, goja.FLAG_TRUE)
	}
	getter("body", func() goja.Value { return in.wrapValue(in.dom.Body()) })
	getter("head", func() goja.Value { return in.wrapValue(in.dom.Head()) })
	getter("documentElement", func() goja.Value { return in.wrapValue(in.dom.DocumentElement()) })
	getter("readyState", func() goja.Value { return vm.ToValue(in.readyState) })
	getter("URL", func() goja.Value { return vm.ToValue(documentURL) })
	getter("defaultView", func() goja.Value { return in.window })
	getter("activeElement", func() goja.Value {
		if in.active != nil {
			return in.wrap(in.active)
		}
		return in.wrapValue(in.dom.Body())
	})
	getter("cookie", func() goja.Value {
		if !in.caps.Has(AllowSameOrigin) {
			panic(in.domException("SecurityError", "Failed to read the 'cookie' property from 'Document': The document is sandboxed and lacks the 'allow-same-origin' flag."))
		}
		return vm.ToValue("")
	})

	_ = doc.DefineAccessorProperty("title",
		vm.ToValue(func(goja.FunctionCall) goja.Value {
			if nodes, _ := in.dom.Query(nil, "title"); len(nodes) > 0 {
				return vm.ToValue(strings.TrimSpace(textContent(nodes[0])))
			}
			return vm.ToValue("")
		}),
		vm.ToValue(func(call goja.FunctionCall) goja.Value {
			title := call.Argument(0).String()
			nodes, _ := in.dom.Query(nil, "title")
			if len(nodes) == 0 {
				head := in.dom.Head()
				if head == nil {
					return goja.Undefined()
				}
				node := &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
				head.AppendChild(node)
				nodes = append(nodes, node)
			}
			setTextContent(nodes[0], title)
			in.dom.RecordChange(DOMChange{Type: "set_text", Node: "title", Value: title})
			return goja.Undefined()
		}),
		goja.FLAG_TRUE, goja.FLAG_TRUE)
}

func (in *instance) compile(selector, method string) cascadia.Matcher {
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		panic(in.domException("SyntaxError", "Failed to execute '"+method+"': '"+selector+"' is not a valid selector."))
	}
	return sel
}

func (in *instance) query(n *html.Node, selector, method string) []*html.Node {
	nodes, err := in.dom.Query(n, selector)
	if err != nil {
		panic(in.domException("SyntaxError", "Failed to execute '"+method+"': '"+selector+"' is not a valid selector."))
	}
	return nodes
}

func (in *instance) setAttribute(n *html.Node, name, value string) {
	if n.Type != html.ElementNode {
		return
	}
	setAttr(n, name, value)
	in.dom.RecordChange(DOMChange{Type: "set_attribute", Node: describe(n), Property: name, Value: value})
}

func (in *instance) toggleAttribute(n *html.Node, name string, on bool) {
	if on {
		in.setAttribute(n, name, "")
		return
	}
	removeAttr(n, name)
	in.dom.RecordChange(DOMChange{Type: "remove_attribute", Node: describe(n), Property: name})
}

func (in *instance) setValue(n *html.Node, value string) {
	switch n.DataAtom {
	case atom.Textarea:
		setTextContent(n, value)
	case atom.Select:
		for _, opt := range descendants(n, func(c *html.Node) bool { return c.DataAtom == atom.Option }) {
			if optionValue(opt) == value {
				setAttr(opt, "selected", "")
			} else {
				removeAttr(opt, "selected")
			}
		}
	default:
		setAttr(n, "value", value)
	}
	in.dom.RecordChange(DOMChange{Type: "set_value", Node: describe(n), Property: "value", Value: value})
}

func (in *instance) nodeOrText(v goja.Value) *html.Node {
	if obj, ok := v.(*goja.Object); ok {
		if n, ok := in.nodes[obj]; ok {
			return n
		}
	}
	return &html.Node{Type: html.TextNode, Data: v.String()}
}

// insert moves child under parent before ref, or at the end when ref is nil
func (in *instance) insert(parent, child, ref *html.Node) {
	if child.Type == html.DocumentNode || contains(child, parent) {
		panic(in.domException("HierarchyRequestError", "The new child element contains the parent."))
	}
	if child == ref {
		return
	}
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}

	// Fragments contribute their children
	if _, fragment := in.fragments[child]; fragment {
		for c := child.FirstChild; c != nil; {
			next := c.NextSibling
			child.RemoveChild(c)
			parent.InsertBefore(c, ref)
			c = next
		}
	} else {
		parent.InsertBefore(child, ref)
	}
	in.dom.RecordChange(DOMChange{Type: "append", Node: describe(parent), Value: describe(child)})
}

func (in *instance) detach(n *html.Node) {
	parent := n.Parent
	parent.RemoveChild(n)
	if in.active != nil && contains(n, in.active) {
		in.active = nil
	}
	in.dom.RecordChange(DOMChange{Type: "remove", Node: describe(parent), Value: describe(n)})
}

// click runs the element's activation behaviour after dispatch
func (in *instance) click(n *html.Node) {
	target := in.wrap(n)

	if isCheckable(n) {
		_, checked := attr(n, "checked")
		in.toggleAttribute(n, "checked", !checked)
	}

	event := in.newEvent(in.rt.mouseEvent, "click", map[string]interface{}{"bubbles": true, "cancelable": true})
	if !in.dispatch(target, event) {
		return
	}

	if isCheckable(n) {
		in.dispatch(target, in.newEvent(in.rt.event, "input", map[string]interface{}{"bubbles": true}))
		in.dispatch(target, in.newEvent(in.rt.event, "change", map[string]interface{}{"bubbles": true}))
		return
	}
	if isSubmitter(n) {
		if form := owningForm(n); form != nil {
			in.submit(form, true)
		}
	}
}

func (in *instance) focus(n *html.Node) {
	if in.active == n {
		return
	}
	if prev := in.active; prev != nil {
		in.active = nil
		in.dispatch(in.wrap(prev), in.newEvent(in.rt.event, "blur", nil))
	}
	in.active = n
	if n != nil {
		in.dispatch(in.wrap(n), in.newEvent(in.rt.event, "focus", nil))
	}
}

// submit gates form submission on allow-forms. requestSubmit fires a
// cancelable submit event first; submit() does not.
func (in *instance) submit(form *html.Node, withEvent bool) {
	if !in.caps.Has(AllowForms) {
		in.warn("Blocked form submission because the form's frame is sandboxed and the 'allow-forms' permission is not set.")
		return
	}
	if withEvent {
		event := in.newEvent(in.rt.event, "submit", map[string]interface{}{"bubbles": true, "cancelable": true})
		if !in.dispatch(in.wrap(form), event) {
			return
		}
	}

	action, _ := attr(form, "action")
	in.dom.RecordChange(DOMChange{Type: "submit", Node: describe(form), Property: "action", Value: action})
	in.log.Info("Form submitted", zap.String("form", describe(form)), zap.String("action", action))
}

func nodeType(n *html.Node) int {
	switch n.Type {
	case html.ElementNode:
		return 1
	case html.TextNode:
		return 3
	case html.CommentNode:
		return 8
	case html.DocumentNode:
		return 9
	case html.DoctypeNode:
		return 10
	default:
		return 0
	}
}

func nextElement(start *html.Node, step func(*html.Node) *html.Node) *html.Node {
	for c := start; c != nil; c = step(c) {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func descendants(n *html.Node, keep func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(d *html.Node) bool {
			if keep(d) {
				out = append(out, d)
			}
			return true
		})
	}
	return out
}

func cloneNode(n *html.Node, deep bool) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	if deep {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			clone.AppendChild(cloneNode(c, true))
		}
	}
	return clone
}

func formValue(n *html.Node) string {
	switch n.DataAtom {
	case atom.Textarea:
		return textContent(n)
	case atom.Select:
		options := descendants(n, func(c *html.Node) bool { return c.DataAtom == atom.Option })
		for _, opt := range options {
			if _, ok := attr(opt, "selected"); ok {
				return optionValue(opt)
			}
		}
		if len(options) > 0 {
			return optionValue(options[0])
		}
		return ""
	case atom.Option:
		return optionValue(n)
	default:
		v, _ := attr(n, "value")
		return v
	}
}

func optionValue(n *html.Node) string {
	if v, ok := attr(n, "value"); ok {
		return v
	}
	return strings.TrimSpace(textContent(n))
}

func isCheckable(n *html.Node) bool {
	if n.DataAtom != atom.Input {
		return false
	}
	typ, _ := attr(n, "type")
	typ = strings.ToLower(typ)
	return typ == "checkbox" || typ == "radio"
}

func isSubmitter(n *html.Node) bool {
	typ, _ := attr(n, "type")
	typ = strings.ToLower(typ)
	switch n.DataAtom {
	case atom.Button:
		return typ == "" || typ == "submit"
	case atom.Input:
		return typ == "submit" || typ == "image"
	default:
		return false
	}
}

func owningForm(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Form {
			return p
		}
	}
	return nil
}
