package docview

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/raysh454/kage/internal/model"
)

// HTMLView implements View over a parsed HTML document. Selector queries go
// through goquery; node-level reads walk the underlying x/net/html tree.
//
// Geometry and computed style are approximated from inline style attributes.
// A rendering host can substitute its own View with real computed values; the
// detection core does not care which it gets.
type HTMLView struct {
	doc  *goquery.Document
	root *html.Node
}

// NewHTMLView parses an HTML document from r.
func NewHTMLView(r io.Reader) (*HTMLView, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var root *html.Node
	if len(doc.Selection.Nodes) > 0 {
		root = doc.Selection.Nodes[0]
	}
	return &HTMLView{doc: doc, root: root}, nil
}

// ParseHTML is a convenience wrapper over NewHTMLView for string input.
func ParseHTML(s string) (*HTMLView, error) {
	return NewHTMLView(strings.NewReader(s))
}

// Query returns elements matching selector in document order. goquery panics
// on malformed selectors, so the panic is converted into an error here and the
// caller decides whether to skip the selector.
func (v *HTMLView) Query(selector string) (els []Element, err error) {
	defer func() {
		if r := recover(); r != nil {
			els = nil
			err = fmt.Errorf("invalid selector %q: %v", selector, r)
		}
	}()

	sel := v.doc.Find(selector)
	els = make([]Element, 0, len(sel.Nodes))
	for _, n := range sel.Nodes {
		if n.Type == html.ElementNode {
			els = append(els, &htmlElement{view: v, node: n})
		}
	}
	return els, nil
}

// Root returns the <html> element, or nil for an empty document.
func (v *HTMLView) Root() Element {
	for n := v.root; n != nil; n = n.FirstChild {
		if n.Type == html.ElementNode {
			return &htmlElement{view: v, node: n}
		}
	}
	return nil
}

// InsertMarker appends a badge span right after target. The badge carries
// model.MarkerClass so subsequent scans exclude it.
func (v *HTMLView) InsertMarker(target Element, label string) Element {
	t, ok := target.(*htmlElement)
	if !ok || t.node.Parent == nil {
		return nil
	}

	marker := &html.Node{
		Type: html.ElementNode,
		Data: "span",
		Attr: []html.Attribute{
			{Key: "class", Val: model.MarkerClass},
			{Key: "data-kage-label", Val: label},
		},
	}
	marker.AppendChild(&html.Node{Type: html.TextNode, Data: label})

	parent := t.node.Parent
	if t.node.NextSibling != nil {
		parent.InsertBefore(marker, t.node.NextSibling)
	} else {
		parent.AppendChild(marker)
	}
	return &htmlElement{view: v, node: marker}
}

// Remove detaches a marker element. Non-marker elements are left alone: the
// view never mutates document structure beyond its own badges.
func (v *HTMLView) Remove(el Element) {
	e, ok := el.(*htmlElement)
	if !ok || e.node.Parent == nil {
		return
	}
	for _, c := range e.Classes() {
		if c == model.MarkerClass {
			e.node.Parent.RemoveChild(e.node)
			return
		}
	}
}

// htmlElement is the View's element handle; identity is the node pointer.
type htmlElement struct {
	view *HTMLView
	node *html.Node
}

func (e *htmlElement) Tag() string {
	return strings.ToLower(e.node.Data)
}

func (e *htmlElement) ID() string {
	id, _ := e.Attr("id")
	return id
}

func (e *htmlElement) Classes() []string {
	cls, _ := e.Attr("class")
	return strings.Fields(cls)
}

func (e *htmlElement) Attr(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range e.node.Attr {
		if strings.ToLower(a.Key) == name {
			return a.Val, true
		}
	}
	return "", false
}

func (e *htmlElement) Text() string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			// script/style bodies are not user-visible text
			if c.Type == html.ElementNode && (c.Data == "script" || c.Data == "style") {
				continue
			}
			walk(c)
		}
	}
	walk(e.node)
	return strings.Join(strings.Fields(b.String()), " ")
}

func (e *htmlElement) Style(prop string) string {
	style, _ := e.Attr("style")
	return styleValue(parseInlineStyle(style), prop)
}

func (e *htmlElement) Box() model.Rect {
	style, _ := e.Attr("style")
	decls := parseInlineStyle(style)
	return model.Rect{
		X:      parsePixels(styleValue(decls, "left")),
		Y:      parsePixels(styleValue(decls, "top")),
		Width:  parsePixels(styleValue(decls, "width")),
		Height: parsePixels(styleValue(decls, "height")),
	}
}

func (e *htmlElement) Parent() Element {
	for n := e.node.Parent; n != nil; n = n.Parent {
		if n.Type == html.ElementNode {
			return &htmlElement{view: e.view, node: n}
		}
	}
	return nil
}

func (e *htmlElement) Children() []Element {
	var out []Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &htmlElement{view: e.view, node: c})
		}
	}
	return out
}

// Path builds a CSS-like locator from the document root. A segment carries an
// :nth-child position only when a preceding sibling shares its tag, so the
// common single-occurrence case stays readable ("html > body > div > a").
func (e *htmlElement) Path() string {
	var segs []string
	for n := e.node; n != nil && n.Type == html.ElementNode; n = parentElement(n) {
		seg := strings.ToLower(n.Data)
		if hasPrevSameTag(n) {
			seg = fmt.Sprintf("%s:nth-child(%d)", seg, siblingIndex(n))
		}
		segs = append([]string{seg}, segs...)
	}
	return strings.Join(segs, " > ")
}

func hasPrevSameTag(n *html.Node) bool {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			return true
		}
	}
	return false
}

func parentElement(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// siblingIndex is the 1-based position of n among its element siblings.
func siblingIndex(n *html.Node) int {
	idx := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			idx++
		}
	}
	return idx
}

// Matches wraps the node in its own selection and lets goquery match it.
// Ancestor combinators still resolve because the node keeps its tree pointers.
func (e *htmlElement) Matches(selector string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return goquery.NewDocumentFromNode(e.node).Selection.Is(selector)
}

func (e *htmlElement) Key() any { return e.node }

func (e *htmlElement) SetStyle(prop, value string) {
	prop = strings.ToLower(prop)
	style, _ := e.Attr("style")
	decls := parseInlineStyle(style)

	replaced := false
	for i := range decls {
		if decls[i].prop == prop {
			decls[i].value = value
			replaced = true
		}
	}
	if !replaced {
		decls = append(decls, declaration{prop: prop, value: value})
	}
	e.setAttr("style", serializeInlineStyle(decls))
}

func (e *htmlElement) RemoveStyle(prop string) {
	prop = strings.ToLower(prop)
	style, ok := e.Attr("style")
	if !ok {
		return
	}
	decls := parseInlineStyle(style)
	kept := decls[:0]
	for _, d := range decls {
		if d.prop != prop {
			kept = append(kept, d)
		}
	}
	e.setAttr("style", serializeInlineStyle(kept))
}

func (e *htmlElement) setAttr(name, value string) {
	for i := range e.node.Attr {
		if strings.ToLower(e.node.Attr[i].Key) == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}
