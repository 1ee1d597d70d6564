package bore

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/vango-dev/bore/pkg/dom"
	"github.com/vango-dev/bore/pkg/domdiff"
	"golang.org/x/net/html"
)

// Kind identifies a query variant.
type Kind int

const (
	KindType Kind = iota + 1
	KindFunc
	KindTemplate
	KindCriteria
	KindSelector
	KindXPath
	KindExpr
)

// String returns the lowercase name used in metrics and the CLI.
func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindFunc:
		return "func"
	case KindTemplate:
		return "template"
	case KindCriteria:
		return "criteria"
	case KindSelector:
		return "selector"
	case KindXPath:
		return "xpath"
	case KindExpr:
		return "expr"
	default:
		return "unknown"
	}
}

// Query selects elements during a walk.
type Query interface {
	Kind() Kind
	compile() (predicate, error)
}

// predicate reports whether an element matches.
type predicate func(*dom.Element) (bool, error)

// From converts v into a Query:
//
//	Query                    itself
//	string                   Selector
//	*dom.Definition          Is
//	func(*dom.Element) bool  Match
//	*dom.Element             Template
//	map[string]any           Criteria
func From(v any) (Query, error) {
	switch q := v.(type) {
	case Query:
		return q, nil
	case string:
		return Selector(q), nil
	case *dom.Definition:
		if q != nil {
			return Is(q), nil
		}
	case func(*dom.Element) bool:
		if q != nil {
			return Match(q), nil
		}
	case *dom.Element:
		if q != nil {
			return Template(q), nil
		}
	case map[string]any:
		return Criteria(q), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedQuery, v)
}

type typeQuery struct{ def *dom.Definition }

// Is matches elements upgraded with def.
func Is(def *dom.Definition) Query { return typeQuery{def: def} }

func (q typeQuery) Kind() Kind { return KindType }

func (q typeQuery) compile() (predicate, error) {
	return func(el *dom.Element) (bool, error) {
		return el.Definition() == q.def, nil
	}, nil
}

type funcQuery struct{ fn func(*dom.Element) bool }

// Match calls fn for every element. Panics in fn are not recovered.
func Match(fn func(*dom.Element) bool) Query { return funcQuery{fn: fn} }

func (q funcQuery) Kind() Kind { return KindFunc }

func (q funcQuery) compile() (predicate, error) {
	return func(el *dom.Element) (bool, error) { return q.fn(el), nil }, nil
}

type templateQuery struct{ tmpl *dom.Element }

// Template matches elements with the same tag, attributes and descendants
// as tmpl.
func Template(tmpl *dom.Element) Query { return templateQuery{tmpl: tmpl} }

func (q templateQuery) Kind() Kind { return KindTemplate }

func (q templateQuery) compile() (predicate, error) {
	return func(el *dom.Element) (bool, error) {
		patches := domdiff.Diff(domdiff.Options{Destination: q.tmpl, Source: el, Root: true})
		return len(patches) == 0, nil
	}, nil
}

// Criteria matches elements whose properties strictly equal every value.
// Comparable values compare with ==; maps, slices and funcs by identity.
// Empty criteria match nothing.
type Criteria map[string]any

func (c Criteria) Kind() Kind { return KindCriteria }

func (c Criteria) compile() (predicate, error) {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return func(el *dom.Element) (bool, error) {
		for _, k := range keys {
			if !strictEqual(el.Prop(k), c[k]) {
				return false, nil
			}
		}
		return true, nil
	}, nil
}

func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}

// Selector matches elements against a CSS selector.
type Selector string

func (s Selector) Kind() Kind { return KindSelector }

func (s Selector) compile() (predicate, error) {
	g, err := cascadia.ParseGroup(string(s))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, string(s), err)
	}
	return func(el *dom.Element) (bool, error) {
		return g.Match(el.HTMLNode()), nil
	}, nil
}

// XPath matches elements selected by an XPath expression evaluated from
// the root of the candidate's tree. Shadow trees are their own roots.
type XPath string

func (x XPath) Kind() Kind { return KindXPath }

func (x XPath) compile() (predicate, error) {
	e, err := xpath.Compile(string(x))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidXPath, string(x), err)
	}
	results := make(map[*html.Node]map[*html.Node]bool)
	return func(el *dom.Element) (bool, error) {
		top := el.HTMLNode()
		for top.Parent != nil {
			top = top.Parent
		}
		set, ok := results[top]
		if !ok {
			set = make(map[*html.Node]bool)
			for _, n := range htmlquery.QuerySelectorAll(top, e) {
				set[n] = true
			}
			results[top] = set
		}
		return set[el.HTMLNode()], nil
	}, nil
}

// Expr matches elements for which an expr-lang expression is true. The
// environment holds the element's reflected properties (id, className,
// localName, nodeName, tagName, nodeType, textContent, isConnected), its
// expando properties, attrs (a map of attributes) and hasAttr(name).
type Expr string

func (x Expr) Kind() Kind { return KindExpr }

func (x Expr) compile() (predicate, error) {
	program, err := expr.Compile(string(x), expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidExpr, string(x), err)
	}
	return func(el *dom.Element) (bool, error) {
		return runExpr(program, el)
	}, nil
}

func runExpr(program *vm.Program, el *dom.Element) (bool, error) {
	out, err := expr.Run(program, exprEnv(el))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidExpr, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("%w: result is %T, not bool", ErrInvalidExpr, out)
	}
	return ok, nil
}

func exprEnv(el *dom.Element) map[string]any {
	attrs := make(map[string]string)
	for _, a := range el.Attributes() {
		attrs[a.Name] = a.Value
	}
	env := make(map[string]any)
	for _, k := range el.Props() {
		env[k] = el.Prop(k)
	}
	for _, k := range []string{"id", "className", "localName", "nodeName", "tagName", "nodeType", "textContent", "isConnected"} {
		env[k] = el.Prop(k)
	}
	env["attrs"] = attrs
	env["hasAttr"] = func(name string) bool { return el.HasAttribute(name) }
	return env
}

// ParseQuery builds a Query from text, for command lines and HTTP
// parameters. kind is one of auto, selector, criteria, xpath or expr; auto
// picks xpath for text starting with "/" or "(" and selector otherwise.
// Criteria are comma-separated key=value pairs; values that parse as ints
// or bools keep that type and quoted values stay strings.
func ParseQuery(kind, text string) (Query, error) {
	switch strings.ToLower(kind) {
	case "", "auto":
		if strings.HasPrefix(text, "/") || strings.HasPrefix(text, "(") {
			return XPath(text), nil
		}
		return Selector(text), nil
	case "selector", "css":
		return Selector(text), nil
	case "xpath":
		return XPath(text), nil
	case "expr":
		return Expr(text), nil
	case "criteria":
		return parseCriteria(text)
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrUnsupportedQuery, kind)
}

func parseCriteria(text string) (Criteria, error) {
	c := Criteria{}
	for _, pair := range strings.Split(text, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: criteria %q is not key=value", ErrUnsupportedQuery, pair)
		}
		c[strings.TrimSpace(key)] = criteriaValue(strings.TrimSpace(value))
	}
	return c, nil
}

func criteriaValue(s string) any {
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}
