package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Default compile limits.
const (
	DefaultMaxDepth = 32
	DefaultMaxNodes = 256
)

// CompileOptions bounds the size of accepted filter trees.
// Zero values select the defaults.
type CompileOptions struct {
	MaxDepth int
	MaxNodes int
}

// Compile parses a JSON filter document into a validated tree.
//
// Grammar:
//
//	FilterExpr  := Comparison | BooleanExpr | [FilterExpr, ...]
//	Comparison  := {"filter": "less"|"greater"|"equals"|"like", "field": string, "value": scalar}
//	BooleanExpr := {"filter": "and"|"or"|"not", "arguments": [FilterExpr, ...]}
//
// A bare array is an implicit "and" of its elements. "not" takes exactly
// one argument. Every comparison is checked against the builder's entity.
//
// Error conditions:
//   - *MalformedFilterError: invalid JSON, missing, mistyped, duplicate or foreign keys, wrong "not" arity
//   - *UnknownOperatorError: unrecognized "filter" name
//   - *UnknownFieldError: field not declared by the entity
//   - *TypeMismatchError: operand incompatible with operator or field kind
func Compile(b *Builder, data []byte) (Node, error) {
	return CompileWithOptions(b, data, CompileOptions{})
}

// CompileWithOptions is Compile with explicit size limits.
func CompileWithOptions(b *Builder, data []byte, opts CompileOptions) (Node, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &MalformedFilterError{Reason: "empty filter document"}
	}
	if !json.Valid(data) {
		return nil, &MalformedFilterError{Reason: "invalid JSON"}
	}

	c := &compiler{b: b, opts: opts}
	return c.expr(data, "", 1)
}

type compiler struct {
	b     *Builder
	opts  CompileOptions
	nodes int
}

// Keys a filter object may carry. Matching is exact-case.
const (
	keyFilter    = "filter"
	keyField     = "field"
	keyValue     = "value"
	keyArguments = "arguments"
)

var knownKeys = []string{keyFilter, keyField, keyValue, keyArguments}

// rawNode holds the undecoded values of one filter object by key.
type rawNode map[string]json.RawMessage

// readNode walks one object token by token so that duplicate and
// case-variant keys are rejected instead of resolved.
func readNode(data json.RawMessage, path string) (rawNode, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, &MalformedFilterError{Path: path, Reason: err.Error()}
	}

	raw := make(rawNode, len(knownKeys))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &MalformedFilterError{Path: path, Reason: err.Error()}
		}
		key, _ := tok.(string)
		if err := checkKey(key, path); err != nil {
			return nil, err
		}
		if _, dup := raw[key]; dup {
			return nil, &MalformedFilterError{Path: path + "/" + key, Reason: fmt.Sprintf("duplicate key %q", key)}
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, &MalformedFilterError{Path: path + "/" + key, Reason: err.Error()}
		}
		raw[key] = value
	}
	return raw, nil
}

func checkKey(key, path string) error {
	for _, k := range knownKeys {
		if key == k {
			return nil
		}
		if strings.EqualFold(key, k) {
			return &MalformedFilterError{Path: path + "/" + key, Reason: fmt.Sprintf("key %q must be spelled %q", key, k)}
		}
	}
	return &MalformedFilterError{Path: path + "/" + key, Reason: fmt.Sprintf("unknown key %q", key)}
}

// rejectKeys fails when the object carries a key the operator does not take.
func (raw rawNode) rejectKeys(path, operator string, keys ...string) error {
	for _, k := range keys {
		if _, ok := raw[k]; ok {
			return &MalformedFilterError{Path: path + "/" + k, Reason: fmt.Sprintf("%s does not take %q", operator, k)}
		}
	}
	return nil
}

func (c *compiler) expr(data json.RawMessage, path string, depth int) (Node, error) {
	if depth > c.opts.MaxDepth {
		return nil, &MalformedFilterError{Path: path, Reason: fmt.Sprintf("filter nested deeper than %d levels", c.opts.MaxDepth)}
	}
	c.nodes++
	if c.nodes > c.opts.MaxNodes {
		return nil, &MalformedFilterError{Path: path, Reason: fmt.Sprintf("filter has more than %d nodes", c.opts.MaxNodes)}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &MalformedFilterError{Path: path, Reason: "empty expression"}
	}

	switch data[0] {
	case '[':
		children, err := c.list(data, path, depth)
		if err != nil {
			return nil, err
		}
		node, err := c.b.And(children...)
		return node, setPath(err, path)
	case '{':
		return c.object(data, path, depth)
	default:
		return nil, &MalformedFilterError{Path: path, Reason: "expression must be an object or an array"}
	}
}

func (c *compiler) object(data json.RawMessage, path string, depth int) (Node, error) {
	raw, err := readNode(data, path)
	if err != nil {
		return nil, err
	}

	if isAbsent(raw[keyFilter]) {
		return nil, &MalformedFilterError{Path: path, Reason: `missing "filter" key`}
	}
	var name string
	if err := json.Unmarshal(raw[keyFilter], &name); err != nil {
		return nil, &MalformedFilterError{Path: path + "/filter", Reason: `"filter" must be a string`}
	}

	method, ok := ParseMethod(name)
	if !ok {
		return nil, &UnknownOperatorError{Path: path + "/filter", Name: name}
	}

	if method.IsComparison() {
		if err := raw.rejectKeys(path, method.Op.String(), keyArguments); err != nil {
			return nil, err
		}
		return c.comparison(method.Op, raw, path)
	}
	if err := raw.rejectKeys(path, method.BoolOp.String(), keyField, keyValue); err != nil {
		return nil, err
	}
	return c.boolean(method.BoolOp, raw, path, depth)
}

func (c *compiler) comparison(op Op, raw rawNode, path string) (Node, error) {
	if isAbsent(raw[keyField]) {
		return nil, &MalformedFilterError{Path: path, Reason: fmt.Sprintf(`%s requires a "field" key`, op)}
	}
	var field string
	if err := json.Unmarshal(raw[keyField], &field); err != nil {
		return nil, &MalformedFilterError{Path: path + "/field", Reason: `"field" must be a string`}
	}
	if field == "" {
		return nil, &MalformedFilterError{Path: path + "/field", Reason: `"field" cannot be empty`}
	}

	if _, ok := raw[keyValue]; !ok {
		return nil, &MalformedFilterError{Path: path, Reason: fmt.Sprintf(`%s requires a "value" key`, op)}
	}
	value, err := parseScalar(raw[keyValue], path+"/value")
	if err != nil {
		return nil, err
	}

	var node Node
	switch op {
	case OpLess:
		node, err = c.b.LessThan(field, value)
	case OpGreater:
		node, err = c.b.GreaterThan(field, value)
	case OpEquals:
		node, err = c.b.EqualTo(field, value)
	case OpLike:
		// non-string operands fail the kind check
		node, err = c.b.compare(field, OpLike, value)
	}
	if err != nil {
		return nil, setPath(err, path)
	}
	return node, nil
}

func (c *compiler) boolean(op BoolOp, raw rawNode, path string, depth int) (Node, error) {
	if isAbsent(raw[keyArguments]) {
		return nil, &MalformedFilterError{Path: path, Reason: fmt.Sprintf(`%s requires an "arguments" array`, op)}
	}
	args := bytes.TrimSpace(raw[keyArguments])
	if args[0] != '[' {
		return nil, &MalformedFilterError{Path: path + "/arguments", Reason: `"arguments" must be an array`}
	}

	children, err := c.list(args, path+"/arguments", depth)
	if err != nil {
		return nil, err
	}

	var node Node
	switch op {
	case And:
		node, err = c.b.And(children...)
	case Or:
		node, err = c.b.Or(children...)
	case Not:
		if len(children) != 1 {
			return nil, &MalformedFilterError{
				Path:   path + "/arguments",
				Reason: fmt.Sprintf("not requires exactly one argument, got %d", len(children)),
			}
		}
		node, err = c.b.Not(children[0])
	}
	if err != nil {
		return nil, setPath(err, path)
	}
	return node, nil
}

func (c *compiler) list(data json.RawMessage, path string, depth int) ([]Node, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &MalformedFilterError{Path: path, Reason: err.Error()}
	}

	children := make([]Node, 0, len(items))
	for i, item := range items {
		child, err := c.expr(item, path+"/"+strconv.Itoa(i), depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// parseScalar decodes a JSON literal, keeping integer numbers exact.
func parseScalar(data json.RawMessage, path string) (Scalar, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Scalar{}, &MalformedFilterError{Path: path, Reason: "missing value"}
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Scalar{}, &MalformedFilterError{Path: path, Reason: err.Error()}
		}
		return StringValue(s), nil
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return Scalar{}, &MalformedFilterError{Path: path, Reason: err.Error()}
		}
		return BoolValue(v), nil
	case 'n':
		return Scalar{}, &MalformedFilterError{Path: path, Reason: "value cannot be null"}
	case '{', '[':
		return Scalar{}, &MalformedFilterError{Path: path, Reason: "value must be a string, number or boolean"}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return Scalar{}, &MalformedFilterError{Path: path, Reason: err.Error()}
	}
	v, err := ParseNumber(n.String())
	if err != nil {
		return Scalar{}, &MalformedFilterError{Path: path, Reason: err.(*MalformedFilterError).Reason}
	}
	return v, nil
}

// ParseNumber converts a JSON number literal to a Scalar.
// Integral literals that fit in int64 stay integers.
func ParseNumber(lit string) (Scalar, error) {
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return IntValue(i), nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Scalar{}, &MalformedFilterError{Reason: fmt.Sprintf("invalid number %q", lit)}
	}
	return FloatValue(f), nil
}

// isAbsent reports a missing key. An explicit null counts as missing.
func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
