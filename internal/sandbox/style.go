package sandbox

import (
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

type declaration struct {
	name  string
	value string
}

// styleDeclaration exposes an element's style attribute as a live
// CSSStyleDeclaration. Property names accept camelCase or kebab-case.
type styleDeclaration struct {
	in *instance
	n  *html.Node
}

func (s *styleDeclaration) declarations() []declaration {
	raw, _ := attr(s.n, "style")
	var out []declaration
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		out = append(out, declaration{name: name, value: strings.TrimSpace(value)})
	}
	return out
}

func (s *styleDeclaration) write(decls []declaration) {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.name+": "+d.value+";")
	}
	text := strings.Join(parts, " ")
	if text == "" {
		removeAttr(s.n, "style")
	} else {
		setAttr(s.n, "style", text)
	}
	s.in.dom.RecordChange(DOMChange{Type: "set_style", Node: describe(s.n), Property: "style", Value: text})
}

func (s *styleDeclaration) lookup(name string) (string, bool) {
	for _, d := range s.declarations() {
		if d.name == name {
			return d.value, true
		}
	}
	return "", false
}

func (s *styleDeclaration) set(name, value string) {
	decls := s.declarations()
	for i, d := range decls {
		if d.name == name {
			if value == "" {
				decls = append(decls[:i], decls[i+1:]...)
			} else {
				decls[i].value = value
			}
			s.write(decls)
			return
		}
	}
	if value != "" {
		s.write(append(decls, declaration{name: name, value: value}))
	}
}

func (s *styleDeclaration) Get(key string) goja.Value {
	vm := s.in.vm
	switch key {
	case "cssText":
		v, _ := attr(s.n, "style")
		return vm.ToValue(v)
	case "length":
		return vm.ToValue(len(s.declarations()))
	case "getPropertyValue":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			v, _ := s.lookup(strings.ToLower(call.Argument(0).String()))
			return vm.ToValue(v)
		})
	case "setProperty":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			s.set(strings.ToLower(call.Argument(0).String()), call.Argument(1).String())
			return goja.Undefined()
		})
	case "removeProperty":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			name := strings.ToLower(call.Argument(0).String())
			old, _ := s.lookup(name)
			s.set(name, "")
			return vm.ToValue(old)
		})
	}
	if i, err := strconv.Atoi(key); err == nil {
		decls := s.declarations()
		if i >= 0 && i < len(decls) {
			return vm.ToValue(decls[i].name)
		}
		return nil
	}
	v, _ := s.lookup(kebab(key))
	return vm.ToValue(v)
}

func (s *styleDeclaration) Set(key string, val goja.Value) bool {
	value := ""
	if !goja.IsNull(val) && !goja.IsUndefined(val) {
		value = strings.TrimSpace(val.String())
	}
	if key == "cssText" {
		setAttr(s.n, "style", value)
		s.in.dom.RecordChange(DOMChange{Type: "set_style", Node: describe(s.n), Property: "style", Value: value})
		return true
	}
	s.set(kebab(key), value)
	return true
}

func (s *styleDeclaration) Has(key string) bool {
	_, ok := s.lookup(kebab(key))
	return ok
}

func (s *styleDeclaration) Delete(key string) bool {
	s.set(kebab(key), "")
	return true
}

func (s *styleDeclaration) Keys() []string {
	decls := s.declarations()
	keys := make([]string, len(decls))
	for i, d := range decls {
		keys[i] = camel(d.name)
	}
	return keys
}

// kebab converts backgroundColor to background-color
func kebab(name string) string {
	if strings.HasPrefix(name, "--") {
		return name
	}
	var sb strings.Builder
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			sb.WriteByte('-')
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func camel(name string) string {
	if strings.HasPrefix(name, "--") {
		return name
	}
	parts := strings.Split(name, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// tokenList exposes the class attribute as a live DOMTokenList
type tokenList struct {
	in *instance
	n  *html.Node
}

func (t *tokenList) write(tokens []string) {
	t.in.setAttribute(t.n, "class", strings.Join(tokens, " "))
}

func (t *tokenList) Get(key string) goja.Value {
	vm := t.in.vm
	tokens := classList(t.n)

	switch key {
	case "length":
		return vm.ToValue(len(tokens))
	case "value":
		return vm.ToValue(strings.Join(tokens, " "))
	case "contains":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(hasClass(t.n, call.Argument(0).String()))
		})
	case "add":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			current := classList(t.n)
			for _, arg := range call.Arguments {
				token := arg.String()
				if !hasClass(t.n, token) {
					current = append(current, token)
				}
			}
			t.write(current)
			return goja.Undefined()
		})
	case "remove":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			drop := make(map[string]bool, len(call.Arguments))
			for _, arg := range call.Arguments {
				drop[arg.String()] = true
			}
			var kept []string
			for _, c := range classList(t.n) {
				if !drop[c] {
					kept = append(kept, c)
				}
			}
			t.write(kept)
			return goja.Undefined()
		})
	case "toggle":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			token := call.Argument(0).String()
			on := !hasClass(t.n, token)
			if force := call.Argument(1); !goja.IsUndefined(force) {
				on = force.ToBoolean()
			}
			var next []string
			for _, c := range classList(t.n) {
				if c != token {
					next = append(next, c)
				}
			}
			if on {
				next = append(next, token)
			}
			t.write(next)
			return vm.ToValue(on)
		})
	case "replace":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			old, repl := call.Argument(0).String(), call.Argument(1).String()
			current := classList(t.n)
			for i, c := range current {
				if c == old {
					current[i] = repl
					t.write(current)
					return vm.ToValue(true)
				}
			}
			return vm.ToValue(false)
		})
	case "item":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			i := int(call.Argument(0).ToInteger())
			if i >= 0 && i < len(classList(t.n)) {
				return vm.ToValue(classList(t.n)[i])
			}
			return goja.Null()
		})
	case "toString":
		return vm.ToValue(func(goja.FunctionCall) goja.Value {
			return vm.ToValue(strings.Join(classList(t.n), " "))
		})
	}

	if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(tokens) {
		return vm.ToValue(tokens[i])
	}
	return nil
}

func (t *tokenList) Set(key string, val goja.Value) bool {
	if key == "value" {
		t.write(strings.Fields(val.String()))
		return true
	}
	return false
}

func (t *tokenList) Has(key string) bool {
	i, err := strconv.Atoi(key)
	return err == nil && i >= 0 && i < len(classList(t.n))
}

func (t *tokenList) Delete(string) bool {
	return false
}

func (t *tokenList) Keys() []string {
	tokens := classList(t.n)
	keys := make([]string, len(tokens))
	for i := range tokens {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}
