package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed is returned (wrapped) when an envelope cannot be parsed.
var ErrMalformed = errors.New("xmlrpc: malformed document")

const maxDepth = 64

type node struct {
	name     string
	text     strings.Builder
	children []*node
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// DecodeResponse parses a methodResponse envelope. A fault response is
// returned as a *Fault error. A response without params decodes to Nil.
func DecodeResponse(body []byte) (Value, error) {
	root, err := parseTree(body)
	if err != nil {
		return Value{}, err
	}
	if root.name != "methodResponse" {
		return Value{}, fmt.Errorf("%w: unexpected root element <%s>", ErrMalformed, root.name)
	}

	if f := root.child("fault"); f != nil {
		return Value{}, decodeFault(f)
	}

	params := root.child("params")
	if params == nil {
		return Nil(), nil
	}
	param := params.child("param")
	if param == nil {
		return Nil(), nil
	}
	v := param.child("value")
	if v == nil {
		return Value{}, fmt.Errorf("%w: <param> without <value>", ErrMalformed)
	}
	return decodeValue(v)
}

// DecodeCall parses a methodCall envelope into the method name and its
// params.
func DecodeCall(body []byte) (string, []Value, error) {
	root, err := parseTree(body)
	if err != nil {
		return "", nil, err
	}
	if root.name != "methodCall" {
		return "", nil, fmt.Errorf("%w: unexpected root element <%s>", ErrMalformed, root.name)
	}
	name := root.child("methodName")
	if name == nil {
		return "", nil, fmt.Errorf("%w: missing <methodName>", ErrMalformed)
	}
	var params []Value
	if p := root.child("params"); p != nil {
		for _, param := range p.children {
			if param.name != "param" {
				continue
			}
			v := param.child("value")
			if v == nil {
				return "", nil, fmt.Errorf("%w: <param> without <value>", ErrMalformed)
			}
			pv, err := decodeValue(v)
			if err != nil {
				return "", nil, err
			}
			params = append(params, pv)
		}
	}
	return strings.TrimSpace(name.text.String()), params, nil
}

func decodeFault(f *node) error {
	v := f.child("value")
	if v == nil {
		return &Fault{Message: strings.TrimSpace(f.text.String())}
	}
	fv, err := decodeValue(v)
	if err != nil {
		return err
	}
	fault := &Fault{}
	switch code := fv.Member("faultCode"); code.Kind() {
	case KindInt:
		fault.Code, _ = code.Int()
	case KindText:
		s, _ := code.Text()
		fault.Code, _ = strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	}
	fault.Message, _ = fv.Member("faultString").Text()
	return fault
}

func decodeValue(n *node) (Value, error) {
	if len(n.children) == 0 {
		return Text(n.text.String()), nil
	}
	typed := n.children[0]
	text := typed.text.String()

	switch typed.name {
	case "int", "i4", "i8":
		i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: bad <%s> %q", ErrMalformed, typed.name, text)
		}
		return Int(i), nil
	case "boolean":
		switch strings.TrimSpace(text) {
		case "1", "true":
			return Bool(true), nil
		case "0", "false":
			return Bool(false), nil
		}
		return Value{}, fmt.Errorf("%w: bad <boolean> %q", ErrMalformed, text)
	case "double":
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: bad <double> %q", ErrMalformed, text)
		}
		return Double(f), nil
	case "string", "dateTime.iso8601", "base64":
		return Text(text), nil
	case "nil":
		return Nil(), nil
	case "array":
		data := typed.child("data")
		if data == nil {
			return List(), nil
		}
		items := make([]Value, 0, len(data.children))
		for _, c := range data.children {
			if c.name != "value" {
				continue
			}
			item, err := decodeValue(c)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return List(items...), nil
	case "struct":
		// A lone struct stays a Struct rather than a one-element list, so
		// common.version reads as a map.
		members := make(map[string]Value, len(typed.children))
		for _, m := range typed.children {
			if m.name != "member" {
				continue
			}
			name := m.child("name")
			val := m.child("value")
			if name == nil {
				return Value{}, fmt.Errorf("%w: <member> without <name>", ErrMalformed)
			}
			if val == nil {
				members[name.text.String()] = Nil()
				continue
			}
			mv, err := decodeValue(val)
			if err != nil {
				return Value{}, err
			}
			members[name.text.String()] = mv
		}
		return Struct(members), nil
	default:
		return Value{}, fmt.Errorf("%w: unknown value type <%s>", ErrMalformed, typed.name)
	}
}

// parseTree reads the whole document into a small element tree. Character
// data is only recorded on leaf-level text; whitespace between elements is
// kept but ignored by decodeValue once an element child exists.
func parseTree(body []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		root  *node
		stack []*node
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) >= maxDepth {
				return nil, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, maxDepth)
			}
			n := &node{name: t.Name.Local}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", ErrMalformed)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("%w: unterminated element <%s>", ErrMalformed, stack[len(stack)-1].name)
	}
	return root, nil
}
