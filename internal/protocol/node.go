package protocol

import "strings"

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>`

// Attr holds a single XML attribute. Name carries the literal attribute
// name as written on the wire, prefix included.
type Attr struct {
	Name  string
	Value string
}

// Node is an in-memory XML element for building requests. Name carries the
// literal element name, prefix included (e.g. "domain:check"); namespace
// declarations travel as ordinary attributes so the output is byte-stable.
type Node struct {
	Name     string
	Attrs    []Attr
	Children []*Node
	Text     string
}

// El builds an element with the given children.
func El(name string, children ...*Node) *Node {
	return &Node{Name: name, Children: children}
}

// TextEl builds a leaf element holding character data.
func TextEl(name, text string) *Node {
	return &Node{Name: name, Text: text}
}

// SetAttr appends an attribute and returns the node for chaining.
func (n *Node) SetAttr(name, value string) *Node {
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

// SetAttrs appends all given attributes and returns the node for chaining.
func (n *Node) SetAttrs(attrs []Attr) *Node {
	n.Attrs = append(n.Attrs, attrs...)
	return n
}

// Append adds child elements and returns the node for chaining.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// FindChild returns the first direct child with the given name, or nil.
func (n *Node) FindChild(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Serialize renders the node as a standalone XML document.
func (n *Node) Serialize() []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteByte('\n')
	n.serialize(&b)
	b.WriteByte('\n')
	return []byte(b.String())
}

func (n *Node) serialize(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(n.Name)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(escapeAttr(a.Value))
		b.WriteByte('"')
	}
	if len(n.Children) == 0 && n.Text == "" {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	if n.Text != "" {
		b.WriteString(escapeText(n.Text))
	}
	for _, c := range n.Children {
		c.serialize(b)
	}
	b.WriteString("</")
	b.WriteString(n.Name)
	b.WriteByte('>')
}

func escapeAttr(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
