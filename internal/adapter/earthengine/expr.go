package earthengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

type exprKind int

const (
	kindConstant exprKind = iota
	kindInvocation
	kindArray
	kindDictionary
	kindArgument
	kindFunction
	kindReference
)

// Expr is a node of a lazily evaluated Earth Engine expression graph.
// Building an Expr never contacts the platform; evaluation happens only when
// the graph is sent to Compute, ExportTable or CreateMap.
type Expr struct {
	kind     exprKind
	constant any
	function string
	ref      string
	params   []string
	args     map[string]Expr
	items    []Expr
}

// Constant wraps a JSON-encodable literal. A nil value encodes as null.
func Constant(v any) Expr {
	return Expr{kind: kindConstant, constant: v}
}

// Invoke calls a platform algorithm with named arguments.
func Invoke(function string, args map[string]Expr) Expr {
	return Expr{kind: kindInvocation, function: function, args: args}
}

// Array builds a list value from expressions.
func Array(items ...Expr) Expr {
	return Expr{kind: kindArray, items: items}
}

// Dictionary builds a dictionary value from expressions.
func Dictionary(fields map[string]Expr) Expr {
	return Expr{kind: kindDictionary, args: fields}
}

// ArgumentRef refers to a parameter of the enclosing function definition.
func ArgumentRef(name string) Expr {
	return Expr{kind: kindArgument, ref: name}
}

// FunctionDef defines a function of params whose result is body.
func FunctionDef(params []string, body Expr) Expr {
	return Expr{kind: kindFunction, params: params, items: []Expr{body}}
}

func valueRef(key string) Expr {
	return Expr{kind: kindReference, ref: key}
}

// Function returns the algorithm name of an invocation, or "".
func (e Expr) Function() string {
	if e.kind != kindInvocation {
		return ""
	}
	return e.function
}

// Arg returns a named argument of an invocation or a dictionary field.
func (e Expr) Arg(name string) (Expr, bool) {
	a, ok := e.args[name]
	return a, ok
}

// Items returns the elements of an array value.
func (e Expr) Items() []Expr { return e.items }

// Value returns the literal of a constant.
func (e Expr) Value() any { return e.constant }

// Walk visits e and every nested expression depth-first. Arguments are
// visited in name order so traversal is deterministic.
func (e Expr) Walk(fn func(Expr)) {
	fn(e)
	for _, k := range sortedKeys(e.args) {
		e.args[k].Walk(fn)
	}
	for _, item := range e.items {
		item.Walk(fn)
	}
}

// Count returns how many invocations of function appear in the graph.
func (e Expr) Count(function string) int {
	n := 0
	e.Walk(func(x Expr) {
		if x.Function() == function {
			n++
		}
	})
	return n
}

// MarshalJSON encodes the node in the REST ValueNode format.
func (e Expr) MarshalJSON() ([]byte, error) {
	switch e.kind {
	case kindConstant:
		return json.Marshal(struct {
			ConstantValue any `json:"constantValue"`
		}{e.constant})
	case kindInvocation:
		type invocation struct {
			FunctionName string          `json:"functionName"`
			Arguments    map[string]Expr `json:"arguments,omitempty"`
		}
		return json.Marshal(struct {
			FunctionInvocationValue invocation `json:"functionInvocationValue"`
		}{invocation{FunctionName: e.function, Arguments: e.args}})
	case kindArray:
		items := e.items
		if items == nil {
			items = []Expr{}
		}
		return json.Marshal(map[string]listValue{"arrayValue": {Values: items}})
	case kindDictionary:
		fields := e.args
		if fields == nil {
			fields = map[string]Expr{}
		}
		return json.Marshal(map[string]dictValue{"dictionaryValue": {Values: fields}})
	case kindArgument:
		return json.Marshal(map[string]string{"argumentReference": e.ref})
	case kindReference:
		return json.Marshal(map[string]string{"valueReference": e.ref})
	case kindFunction:
		if len(e.items) != 1 || e.items[0].kind != kindReference {
			return nil, errors.New("earthengine: function body must be encoded through NewExpression")
		}
		return json.Marshal(map[string]funcDef{"functionDefinitionValue": {
			ArgumentNames: e.params,
			Body:          e.items[0].ref,
		}})
	default:
		return nil, fmt.Errorf("earthengine: unknown expression kind %d", e.kind)
	}
}

type listValue struct {
	Values []Expr `json:"values"`
}

type dictValue struct {
	Values map[string]Expr `json:"values"`
}

type funcDef struct {
	ArgumentNames []string `json:"argumentNames"`
	Body          string   `json:"body"`
}

// Expression is the top-level Expression message: a result key into a map
// of value nodes. A subgraph that occurs more than once is stored under one
// key and referenced from every use site.
type Expression struct {
	Result string          `json:"result"`
	Values map[string]Expr `json:"values"`
}

// NewExpression encodes root, sharing structurally identical subgraphs.
func NewExpression(root Expr) (Expression, error) {
	enc := &encoder{keys: make(map[string]string)}
	top, err := enc.hoist(root)
	if err != nil {
		return Expression{}, err
	}
	if top.kind != kindReference {
		top = enc.store(top, "")
	}
	enc.countUses()

	out := make(map[string]Expr)
	enc.emit(top.ref, out)
	return Expression{Result: top.ref, Values: out}, nil
}

// encoder interns every composite node by its shallow encoding, in which
// children are replaced by value references.
type encoder struct {
	keys   map[string]string
	nodes  []Expr
	uses   []int
	pinned []bool
}

func (enc *encoder) hoist(e Expr) (Expr, error) {
	switch e.kind {
	case kindConstant, kindArgument, kindReference:
		return e, nil
	}

	shallow := Expr{kind: e.kind, function: e.function, params: e.params}
	if e.args != nil {
		shallow.args = make(map[string]Expr, len(e.args))
		for _, k := range sortedKeys(e.args) {
			child, err := enc.hoist(e.args[k])
			if err != nil {
				return Expr{}, err
			}
			shallow.args[k] = child
		}
	}
	for _, item := range e.items {
		child, err := enc.hoist(item)
		if err != nil {
			return Expr{}, err
		}
		shallow.items = append(shallow.items, child)
	}

	var pin string
	if e.kind == kindFunction {
		body := shallow.items[0]
		if body.kind != kindReference {
			body = enc.store(body, "")
		}
		shallow.items[0] = body
		pin = body.ref
	}

	sig, err := json.Marshal(shallow)
	if err != nil {
		return Expr{}, err
	}
	if key, ok := enc.keys[string(sig)]; ok {
		return valueRef(key), nil
	}
	ref := enc.store(shallow, string(sig))
	if pin != "" {
		enc.pinned[keyIndex(pin)] = true
	}
	return ref, nil
}

func (enc *encoder) store(e Expr, sig string) Expr {
	key := strconv.Itoa(len(enc.nodes))
	enc.nodes = append(enc.nodes, e)
	enc.pinned = append(enc.pinned, false)
	if sig != "" {
		enc.keys[sig] = key
	}
	return valueRef(key)
}

func (enc *encoder) countUses() {
	enc.uses = make([]int, len(enc.nodes))
	for _, n := range enc.nodes {
		for _, child := range n.args {
			if child.kind == kindReference {
				enc.uses[keyIndex(child.ref)]++
			}
		}
		for _, child := range n.items {
			if child.kind == kindReference {
				enc.uses[keyIndex(child.ref)]++
			}
		}
	}
}

// emit stores the node under key in out, inlining children used only once.
func (enc *encoder) emit(key string, out map[string]Expr) {
	if _, ok := out[key]; ok {
		return
	}
	out[key] = enc.resolve(enc.nodes[keyIndex(key)], out)
}

func (enc *encoder) resolve(n Expr, out map[string]Expr) Expr {
	if n.kind != kindReference {
		if n.kind == kindConstant || n.kind == kindArgument {
			return n
		}
		resolved := Expr{kind: n.kind, function: n.function, params: n.params}
		if n.args != nil {
			resolved.args = make(map[string]Expr, len(n.args))
			for k, child := range n.args {
				resolved.args[k] = enc.resolve(child, out)
			}
		}
		for _, child := range n.items {
			resolved.items = append(resolved.items, enc.resolve(child, out))
		}
		return resolved
	}

	i := keyIndex(n.ref)
	if enc.uses[i] > 1 || enc.pinned[i] {
		enc.emit(n.ref, out)
		return n
	}
	return enc.resolve(enc.nodes[i], out)
}

func keyIndex(key string) int {
	i, _ := strconv.Atoi(key)
	return i
}

func sortedKeys(m map[string]Expr) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
