// Package xmlrpc implements the XML-RPC wire format used by the Odoo external
// API: a tagged value union, a request encoder and a structural response
// decoder.
package xmlrpc

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// Kind identifies which variant of the value union is populated.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindDouble
	KindText
	KindList
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a single XML-RPC value. The zero Value is Nil.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	f       float64
	s       string
	list    []Value
	members map[string]Value
}

func Nil() Value             { return Value{} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Int(i int64) Value      { return Value{kind: KindInt, i: i} }
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }
func Text(s string) Value    { return Value{kind: KindText, s: s} }

// List builds a list value. A nil argument list yields an empty list.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Struct builds a struct value from the given members.
func Struct(members map[string]Value) Value {
	if members == nil {
		members = map[string]Value{}
	}
	return Value{kind: KindStruct, members: members}
}

// Number encodes integral floats as Int and anything with a fractional part
// as Double. The remote side treats the two differently.
func Number(f float64) Value {
	if isIntegral(f) {
		return Int(int64(f))
	}
	return Double(f)
}

func isIntegral(f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	return math.Trunc(f) == f && f >= math.MinInt64 && f < math.MaxInt64
}

func (v Value) Kind() Kind  { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }

// Bool reports the boolean payload; ok is false for other kinds.
func (v Value) Bool() (b bool, ok bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Int reports the integer payload; ok is false for other kinds.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float reports the numeric payload of an Int or Double value.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindDouble:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Text reports the string payload; ok is false for other kinds.
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.s, true
}

// String renders the value for logs and error messages.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindDouble:
		return formatDouble(v.f)
	case KindText:
		return v.s
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindStruct:
		keys := v.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.members[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "?"
	}
}

// List returns the list items, or nil if v is not a list.
func (v Value) List() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Len returns the number of list items or struct members.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindStruct:
		return len(v.members)
	default:
		return 0
	}
}

// Members returns the struct members, or nil if v is not a struct.
func (v Value) Members() map[string]Value {
	if v.kind != KindStruct {
		return nil
	}
	return v.members
}

// Struct is an alias of Members.
func (v Value) Struct() map[string]Value { return v.Members() }

// Member returns the named struct member. Missing members and non-struct
// values yield Nil.
func (v Value) Member(name string) Value {
	if v.kind != KindStruct {
		return Nil()
	}
	return v.members[name]
}

// Keys returns the struct member names in sorted order.
func (v Value) Keys() []string {
	if v.kind != KindStruct {
		return nil
	}
	keys := make([]string, 0, len(v.members))
	for k := range v.members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IntList collects the Int items of a list value. Non-int items are skipped.
func (v Value) IntList() []int64 {
	if v.kind != KindList {
		return nil
	}
	out := make([]int64, 0, len(v.list))
	for _, item := range v.list {
		if i, ok := item.Int(); ok {
			out = append(out, i)
		}
	}
	return out
}

// ManyToOne reads a relational field, which Odoo returns either as
// [id, "display name"], as a bare id, or as false when unset.
func (v Value) ManyToOne() (id int64, name string, ok bool) {
	switch v.kind {
	case KindInt:
		return v.i, "", v.i > 0
	case KindList:
		if len(v.list) == 0 {
			return 0, "", false
		}
		id, ok = v.list[0].Int()
		if !ok {
			return 0, "", false
		}
		if len(v.list) > 1 {
			name, _ = v.list[1].Text()
		}
		return id, name, true
	default:
		return 0, "", false
	}
}

// Equal reports deep equality. Empty and nil lists compare equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindDouble:
		return v.f == o.f
	case KindText:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindStruct:
		if len(v.members) != len(o.members) {
			return false
		}
		for k, mv := range v.members {
			ov, ok := o.members[k]
			if !ok || !mv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Go converts the value into plain Go types: nil, bool, int64, float64,
// string, []any and map[string]any.
func (v Value) Go() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindDouble:
		return v.f
	case KindText:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Go()
		}
		return out
	case KindStruct:
		out := make(map[string]any, len(v.members))
		for k, mv := range v.members {
			out[k] = mv.Go()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON renders the value through its Go form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Go())
}

// FromGo converts a Go value into a Value. Supported inputs are nil, Value,
// booleans, integers, floats, strings, slices, arrays and maps keyed by
// string.
func FromGo(in any) (Value, error) {
	switch x := in.(type) {
	case nil:
		return Nil(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case int32:
		return Int(int64(x)), nil
	case float64:
		return Number(x), nil
	case string:
		return Text(x), nil
	case []Value:
		return List(x...), nil
	case map[string]Value:
		return Struct(x), nil
	}
	return fromReflect(reflect.ValueOf(in))
}

func fromReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Invalid:
		return Nil(), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Nil(), nil
		}
		return FromGo(rv.Elem().Interface())
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Value{}, fmt.Errorf("xmlrpc: unsigned value %d overflows int64", u)
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.String:
		return Text(rv.String()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return List(), nil
		}
		items := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := FromGo(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = item
		}
		return List(items...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("xmlrpc: unsupported map key type %s", rv.Type().Key())
		}
		members := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			mv, err := FromGo(iter.Value().Interface())
			if err != nil {
				return Value{}, fmt.Errorf("member %q: %w", iter.Key().String(), err)
			}
			members[iter.Key().String()] = mv
		}
		return Struct(members), nil
	default:
		return Value{}, fmt.Errorf("xmlrpc: unsupported type %s", rv.Type())
	}
}
