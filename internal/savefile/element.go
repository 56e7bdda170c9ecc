package savefile

import (
	"encoding/xml"
	"strings"
)

// Element is a materialized XML element: its name, its own character data and
// its child elements in document order.
type Element struct {
	Name     string
	Children []*Element

	text strings.Builder
}

// Text returns the concatenated character data of the element and all of its
// descendants, in document order.
func (e *Element) Text() string {
	if e == nil {
		return ""
	}
	if len(e.Children) == 0 {
		return e.text.String()
	}
	var b strings.Builder
	e.writeText(&b)
	return b.String()
}

func (e *Element) writeText(b *strings.Builder) {
	b.WriteString(e.text.String())
	for _, c := range e.Children {
		c.writeText(b)
	}
}

// Find returns the first descendant named name in document order, or nil.
func (e *Element) Find(name string) *Element {
	if e == nil {
		return nil
	}
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant named name in document order.
func (e *Element) FindAll(name string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
		out = append(out, c.FindAll(name)...)
	}
	return out
}

// readElement consumes tokens up to and including the end of start and
// returns the element tree rooted at start.
func readElement(dec *xml.Decoder, start xml.StartElement) (*Element, error) {
	root := &Element{Name: start.Name.Local}
	stack := []*Element{root}

	for len(stack) > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			child := &Element{Name: t.Name.Local}
			top.Children = append(top.Children, child)
			stack = append(stack, child)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			top.text.Write(t)
		}
	}
	return root, nil
}

// NewElement builds an element by hand. Useful when callers already hold a
// decoded tree.
func NewElement(name, text string, children ...*Element) *Element {
	e := &Element{Name: name, Children: children}
	e.text.WriteString(text)
	return e
}
