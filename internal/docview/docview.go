// Package docview abstracts the host document as an injected capability.
// The detection core reads element text, attributes, style and ancestry
// through these interfaces and never owns the document's lifecycle. The only
// writes allowed are transient presentation hints (highlight styles, marker
// badges), which are reversible and carry no detection semantics.
package docview

import "github.com/raysh454/kage/internal/model"

// View is a queryable document.
type View interface {
	// Query returns all elements matching a CSS selector, in document order.
	// A malformed selector returns an error; callers are expected to skip it
	// and continue with remaining selectors.
	Query(selector string) ([]Element, error)

	// Root returns the document root element (html), or nil for an empty document.
	Root() Element

	// InsertMarker inserts a presentational badge element next to target and
	// returns it. Markers carry model.MarkerClass so scans ignore them.
	InsertMarker(target Element, label string) Element

	// Remove detaches an element previously inserted via InsertMarker.
	Remove(el Element)
}

// Element is a read-mostly handle on one document node.
// All readers degrade to neutral defaults ("", zero Rect, nil) instead of
// failing: extraction must never abort a scan.
type Element interface {
	// Tag returns the lower-case tag name ("button", "a", ...).
	Tag() string

	// ID returns the element id attribute, or "".
	ID() string

	// Classes returns the class attribute split into tokens.
	Classes() []string

	// Attr returns a raw attribute value and whether it is present.
	Attr(name string) (string, bool)

	// Text returns the whitespace-normalized text content of the element's subtree.
	Text() string

	// Style returns the value of one computed-style property, or "" if unknown.
	Style(prop string) string

	// Box returns the element's bounding box, zero when geometry is unknown.
	Box() model.Rect

	// Parent returns the parent element, nil at the document root.
	Parent() Element

	// Children returns the direct child elements in document order.
	Children() []Element

	// Path returns a CSS-like locator from the document root.
	Path() string

	// Matches reports whether this element itself satisfies a CSS selector.
	// Malformed selectors match nothing.
	Matches(selector string) bool

	// Key returns a comparable identity for deduplication. Two handles on the
	// same underlying node return equal keys.
	Key() any

	// SetStyle writes a transient inline style property (highlighting only).
	SetStyle(prop, value string)

	// RemoveStyle removes a previously written inline style property.
	RemoveStyle(prop string)
}
