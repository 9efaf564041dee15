// Package hosttree is an in-memory host document for treectx, built on
// golang.org/x/net/html nodes. It adds fragments, shadow roots and slot
// assignment on top of the parsed tree.
package hosttree

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/delaneyj/treectx/pkg/treectx"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// AutoContextPrefix marks custom elements that get a context node as soon
// as discovery passes through them.
const AutoContextPrefix = "amp-"

// Forest owns every node created or parsed through it. Nodes of different
// documents in one forest can be moved between them.
type Forest struct {
	nodes map[*html.Node]*Node
}

func NewForest() *Forest {
	return &Forest{nodes: map[*html.Node]*Node{}}
}

type Node struct {
	forest *Forest
	raw    *html.Node
	kind   treectx.HostKind
	shadow *Node
	host   *Node
}

func (f *Forest) wrap(raw *html.Node) *Node {
	if raw == nil {
		return nil
	}
	if n, ok := f.nodes[raw]; ok {
		return n
	}
	n := &Node{forest: f, raw: raw, kind: kindOf(raw)}
	f.nodes[raw] = n
	return n
}

func kindOf(raw *html.Node) treectx.HostKind {
	switch raw.Type {
	case html.ElementNode:
		return treectx.HostElement
	case html.DocumentNode:
		return treectx.HostDocument
	default:
		return treectx.HostOther
	}
}

// Wrap returns the node for a raw html node of this forest.
func (f *Forest) Wrap(raw *html.Node) *Node { return f.wrap(raw) }

func (f *Forest) NewDocument() *Node {
	return f.wrap(&html.Node{Type: html.DocumentNode})
}

func (f *Forest) NewFragment() *Node {
	n := f.wrap(&html.Node{Type: html.DocumentNode})
	n.kind = treectx.HostFragment
	return n
}

func (f *Forest) NewElement(tag string, attrs ...string) *Node {
	if len(attrs)%2 != 0 {
		panic(fmt.Errorf("hosttree: odd attribute list for <%s>", tag))
	}
	tag = strings.ToLower(tag)
	raw := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i < len(attrs); i += 2 {
		raw.Attr = append(raw.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return f.wrap(raw)
}

func (f *Forest) NewText(text string) *Node {
	return f.wrap(&html.Node{Type: html.TextNode, Data: text})
}

// Parse reads a complete html document.
func (f *Forest) Parse(r io.Reader) (*Node, error) {
	raw, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("hosttree: parse: %w", err)
	}
	return f.wrap(raw), nil
}

func (n *Node) Raw() *html.Node { return n.raw }

func (n *Node) HostKind() treectx.HostKind { return n.kind }

func (n *Node) ParentHost() treectx.Host {
	if n.host != nil {
		return n.host
	}
	if p := n.Parent(); p != nil {
		return p
	}
	return nil
}

func (n *Node) AssignedSlot() treectx.Host {
	if slot := n.assignedSlot(); slot != nil {
		return slot
	}
	return nil
}

func (n *Node) assignedSlot() *Node {
	if n.kind != treectx.HostElement && n.raw.Type != html.TextNode {
		return nil
	}
	parent := n.Parent()
	if parent == nil || parent.shadow == nil {
		return nil
	}
	name, _ := n.Attr("slot")
	for _, slot := range parent.shadow.Find("slot") {
		if slotName, _ := slot.Attr("name"); slotName == name {
			return slot
		}
	}
	return nil
}

func (n *Node) AutoContext() bool {
	return n.kind == treectx.HostElement && strings.HasPrefix(n.raw.Data, AutoContextPrefix)
}

func (n *Node) Tag() string {
	if n.kind != treectx.HostElement {
		return ""
	}
	return n.raw.Data
}

func (n *Node) ID() string {
	id, _ := n.Attr("id")
	return id
}

func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.raw.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (n *Node) Attrs() []html.Attribute { return n.raw.Attr }

func (n *Node) SetAttr(key, val string) {
	for i, a := range n.raw.Attr {
		if a.Namespace == "" && a.Key == key {
			n.raw.Attr[i].Val = val
			return
		}
	}
	n.raw.Attr = append(n.raw.Attr, html.Attribute{Key: key, Val: val})
}

func (n *Node) RemoveAttr(key string) {
	for i, a := range n.raw.Attr {
		if a.Namespace == "" && a.Key == key {
			n.raw.Attr = append(n.raw.Attr[:i], n.raw.Attr[i+1:]...)
			return
		}
	}
}

// Parent is the structural parent. Shadow roots have none; see Host.
func (n *Node) Parent() *Node {
	return n.forest.wrap(n.raw.Parent)
}

func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.raw.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, n.forest.wrap(c))
	}
	return out
}

// AppendChild moves child to the end of n's children. Appending a fragment
// moves the fragment's children instead.
func (n *Node) AppendChild(child *Node) *Node {
	if child.kind == treectx.HostFragment {
		for _, c := range child.Children() {
			n.AppendChild(c)
		}
		return child
	}
	child.detach()
	n.raw.AppendChild(child.raw)
	return child
}

func (n *Node) InsertBefore(child, ref *Node) *Node {
	if ref == nil {
		return n.AppendChild(child)
	}
	child.detach()
	n.raw.InsertBefore(child.raw, ref.raw)
	return child
}

// Remove detaches n from its parent.
func (n *Node) Remove() { n.detach() }

func (n *Node) detach() {
	if n.raw.Parent != nil {
		n.raw.Parent.RemoveChild(n.raw)
	}
}

// Contains reports whether other is n or a structural descendant of n,
// crossing into shadow trees.
func (n *Node) Contains(other *Node) bool {
	for o := other; o != nil; {
		if o == n {
			return true
		}
		if o.host != nil {
			o = o.host
			continue
		}
		o = o.Parent()
	}
	return false
}

// AttachShadow gives n a shadow root, returning the existing one when it
// already has it.
func (n *Node) AttachShadow() *Node {
	if n.kind != treectx.HostElement {
		panic(fmt.Errorf("hosttree: cannot attach a shadow root to a %s", n.kind))
	}
	if n.shadow == nil {
		n.shadow = n.forest.NewFragment()
		n.shadow.host = n
	}
	return n.shadow
}

func (n *Node) ShadowRoot() *Node { return n.shadow }

// Host is the element a shadow root is attached to.
func (n *Node) Host() *Node { return n.host }

func (n *Node) IsShadowRoot() bool { return n.host != nil }

// Find returns the descendants of n matching a CSS selector, in document
// order. Shadow trees are not searched.
func (n *Node) Find(selector string) []*Node {
	sel := goquery.NewDocumentFromNode(n.raw).Find(selector)
	out := make([]*Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, n.forest.wrap(s.Get(0)))
	})
	return out
}

// ByID finds n itself or a descendant by id.
func (n *Node) ByID(id string) *Node {
	if n.ID() == id {
		return n
	}
	for _, m := range n.Find(fmt.Sprintf("[id=%q]", id)) {
		return m
	}
	return nil
}

// Path lists the tags from the document down to n, for display.
func (n *Node) Path() string {
	var parts []string
	for o := n; o != nil; {
		parts = append(parts, o.String())
		if o.host != nil {
			o = o.host
			continue
		}
		o = o.Parent()
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

func (n *Node) String() string {
	switch {
	case n.host != nil:
		return "#shadow-root"
	case n.kind == treectx.HostDocument:
		return "#document"
	case n.kind == treectx.HostFragment:
		return "#fragment"
	case n.kind == treectx.HostElement:
		if id := n.ID(); id != "" {
			return n.raw.Data + "#" + id
		}
		return n.raw.Data
	default:
		return "#text"
	}
}
