package protocol

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"eppclient/pkg/errors"
)

// Reply trees are generic maps so every server extension survives decoding
// even when the client has no dedicated struct for it. An element becomes
//
//   - a string, when it carries only character data
//   - a map[string]any, with "@attributes" (map[string]string), "@value"
//     (character data next to attributes) and one entry per child name
//   - a []any, when siblings repeat under the same name
//
// Child keys are "key:local" where key is the short namespace key derived
// from the element's URI; elements in the base protocol namespace keep
// their bare local name.

const (
	attrsKey = "@attributes"
	valueKey = "@value"
)

type treeNode struct {
	key      string
	attrs    map[string]string
	text     strings.Builder
	children []*treeNode
}

// ParseTree decodes an XML document into the generic map form described
// above. The document must have exactly one root element.
func ParseTree(body []byte) (map[string]any, error) {
	d := xml.NewDecoder(bytes.NewReader(body))
	d.Strict = false

	var stack []*treeNode
	var root *treeNode

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDecode, "malformed reply document")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, errors.New(errors.CodeDecode, "reply document has more than one root element")
			}
			node := &treeNode{key: elementKey(t.Name)}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				if node.attrs == nil {
					node.attrs = make(map[string]string)
				}
				node.attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			} else {
				root = node
			}
			stack = append(stack, node)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errors.New(errors.CodeDecode, "unbalanced reply document")
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New(errors.CodeDecode, "empty reply document")
	}
	if len(stack) != 0 {
		return nil, errors.New(errors.CodeDecode, "truncated reply document")
	}
	return map[string]any{root.key: root.value()}, nil
}

// elementKey maps a resolved element name to its tree key. encoding/xml
// reports the namespace URI, not the wire prefix, so the short key is
// re-derived the same way the registry derives it.
func elementKey(name xml.Name) string {
	if name.Space == "" || name.Space == NSEpp {
		return name.Local
	}
	key, _, ok := deriveKey(name.Space)
	if !ok {
		return name.Local
	}
	return key + ":" + name.Local
}

func (n *treeNode) value() any {
	text := strings.TrimSpace(n.text.String())
	if len(n.children) == 0 {
		if len(n.attrs) == 0 {
			return text
		}
		m := map[string]any{attrsKey: n.attrs}
		if text != "" {
			m[valueKey] = text
		}
		return m
	}

	m := make(map[string]any)
	if len(n.attrs) > 0 {
		m[attrsKey] = n.attrs
	}
	for _, c := range n.children {
		v := c.value()
		switch existing := m[c.key].(type) {
		case nil:
			m[c.key] = v
		case []any:
			m[c.key] = append(existing, v)
		default:
			m[c.key] = []any{existing, v}
		}
	}
	return m
}

// asMap returns v as a map, or nil when it is anything else.
func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asList normalizes the single/repeated element ambiguity: nil stays nil,
// a list stays itself, anything else becomes a one-element list.
func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// text extracts the character data of a decoded element in either of its
// tree forms.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		s, _ := t[valueKey].(string)
		return s
	default:
		return ""
	}
}

// attr returns a named attribute of a decoded element, or "".
func attr(m map[string]any, name string) string {
	if m == nil {
		return ""
	}
	a, _ := m[attrsKey].(map[string]string)
	return a[name]
}

// first returns the value of the first key present in m.
func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

// LocalizeKeys rewrites every map key of form "prefix:local" to "local",
// recursing through nested maps and lists. Values are never altered. When
// localization makes two keys collide the later sibling wins; servers do
// not mix same-named children from different namespaces in practice.
func LocalizeKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if i := strings.IndexByte(k, ':'); i >= 0 {
				k = k[i+1:]
			}
			out[k] = LocalizeKeys(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = LocalizeKeys(child)
		}
		return out
	default:
		return v
	}
}
