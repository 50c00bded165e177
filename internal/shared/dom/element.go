package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element is a lightweight DOM node used for app containers and loaded
// HTML fragments. Text nodes have TagName "#text" and only Text set.
type Element struct {
	TagName    string
	Text       string
	Attributes map[string]string
	Children   []*Element
	Parent     *Element
}

// NewElement creates an empty element with the given tag.
func NewElement(tag string) *Element {
	return &Element{
		TagName:    tag,
		Attributes: make(map[string]string),
	}
}

// Parse builds an element tree from an HTML fragment. The fragment is
// wrapped in a synthetic root so multiple top-level nodes survive.
func Parse(fragment string) (*Element, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil, err
	}
	root := NewElement("micro-app-body")
	for _, n := range nodes {
		if child := fromNode(n); child != nil {
			root.AppendChild(child)
		}
	}
	return root, nil
}

func fromNode(n *html.Node) *Element {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil
		}
		return &Element{TagName: "#text", Text: n.Data}
	case html.ElementNode:
		e := NewElement(n.Data)
		for _, a := range n.Attr {
			e.Attributes[a.Key] = a.Val
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := fromNode(c); child != nil {
				e.AppendChild(child)
			}
		}
		return e
	default:
		return nil
	}
}

// GetAttribute returns the attribute value, or "" when absent.
func (e *Element) GetAttribute(name string) string {
	if e.Attributes == nil {
		return ""
	}
	return e.Attributes[name]
}

// SetAttribute sets an attribute value.
func (e *Element) SetAttribute(name, value string) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[name] = value
}

// AppendChild attaches a child element.
func (e *Element) AppendChild(child *Element) {
	child.Parent = e
	e.Children = append(e.Children, child)
}

// HasChildren reports whether the element has any children.
func (e *Element) HasChildren() bool {
	return len(e.Children) > 0
}

// ClearChildren detaches all children.
func (e *Element) ClearChildren() {
	for _, c := range e.Children {
		c.Parent = nil
	}
	e.Children = nil
}

// Clone returns a deep copy; the copy has no parent.
func (e *Element) Clone() *Element {
	cp := &Element{TagName: e.TagName, Text: e.Text}
	if e.Attributes != nil {
		cp.Attributes = make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			cp.Attributes[k] = v
		}
	}
	for _, c := range e.Children {
		cp.AppendChild(c.Clone())
	}
	return cp
}

// CloneChildrenInto replaces dst's children with deep copies of e's
// children. The originals stay attached to e, making the move
// non-destructive on the source side.
func (e *Element) CloneChildrenInto(dst *Element) {
	dst.ClearChildren()
	for _, c := range e.Children {
		dst.AppendChild(c.Clone())
	}
}

// Query returns all descendants with the given tag name.
func (e *Element) Query(tag string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if strings.EqualFold(c.TagName, tag) {
			out = append(out, c)
		}
		out = append(out, c.Query(tag)...)
	}
	return out
}

// Render serializes the element's children back to HTML.
func (e *Element) Render() string {
	var b strings.Builder
	for _, c := range e.Children {
		renderTo(&b, c)
	}
	return b.String()
}

func renderTo(b *strings.Builder, e *Element) {
	if e.TagName == "#text" {
		b.WriteString(html.EscapeString(e.Text))
		return
	}
	b.WriteByte('<')
	b.WriteString(e.TagName)
	for k, v := range e.Attributes {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(v))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	for _, c := range e.Children {
		renderTo(b, c)
	}
	b.WriteString("</")
	b.WriteString(e.TagName)
	b.WriteByte('>')
}
