package treectx

import (
	"fmt"
	"slices"
	"sort"

	"github.com/delaneyj/treectx/pkg/schedule"
)

// Node mirrors one host in the context tree.
type Node struct {
	engine *Engine
	id     uint64
	host   Host
	name   string

	isRoot           bool
	discoverable     bool
	parentOverridden bool
	parent           *Node
	children         []*Node
	root             *Node
	groups           []*group

	values     *Values
	components map[any]*component
	compOrder  []*component

	discoverTrigger func()
}

type group struct {
	node   *Node
	match  func(Host) bool
	weight int
}

func newNode(e *Engine, host Host, name string) *Node {
	e.nextID++
	n := &Node{
		engine:     e,
		id:         e.nextID,
		host:       host,
		name:       name,
		components: map[any]*component{},
	}
	n.isRoot = name == "" && host.HostKind() == HostDocument
	if n.isRoot {
		n.root = n
	}
	n.discoverable = !n.isRoot
	n.values = newValues(n)
	n.discoverTrigger = schedule.ThrottleTail(n.discover, e.scheduler)
	return n
}

func (n *Node) Engine() *Engine       { return n.engine }
func (n *Node) ID() uint64            { return n.id }
func (n *Node) Host() Host            { return n.host }
func (n *Node) Name() string          { return n.name }
func (n *Node) IsRoot() bool          { return n.isRoot }
func (n *Node) IsDiscoverable() bool  { return n.discoverable }
func (n *Node) IsParentPinned() bool  { return n.parentOverridden }
func (n *Node) Parent() *Node         { return n.parent }
func (n *Node) Root() *Node           { return n.root }
func (n *Node) IsConnected() bool     { return n.root != nil }
func (n *Node) Values() *Values       { return n.values }
func (n *Node) Children() []*Node     { return slices.Clone(n.children) }
func (n *Node) HasChild(c *Node) bool { return slices.Contains(n.children, c) }

func (n *Node) String() string {
	label := fmt.Sprintf("%v", n.host)
	if s, ok := n.host.(fmt.Stringer); ok {
		label = s.String()
	}
	if n.name != "" {
		return fmt.Sprintf("node#%d(%s/%s)", n.id, label, n.name)
	}
	return fmt.Sprintf("node#%d(%s)", n.id, label)
}

// Discover schedules a discovery pass when the node is discoverable.
// Repeated calls before the pass runs are folded together.
func (n *Node) Discover() {
	if n.discoverable {
		n.discoverTrigger()
	}
}

func (n *Node) discover() {
	if !n.discoverable {
		return
	}
	n.engine.metrics.Discoveries.Inc()
	var parent *Node
	if closest := n.engine.Closest(n.host, false); closest != nil {
		parent = closest.findGroup(n.host)
	}
	n.updateTree(parent, false)
}

// SetParent pins the node under parent and stops discovery. A nil parent
// detaches the node and turns discovery back on.
func (n *Node) SetParent(parent *Node) {
	n.updateTree(parent, parent != nil)
	if parent == nil {
		n.Discover()
	}
}

// SetIsRoot turns the node into a root of its own, detached from any parent,
// or back into a discoverable node.
func (n *Node) SetIsRoot(isRoot bool) {
	if n.isRoot == isRoot {
		return
	}
	n.isRoot = isRoot
	n.updateTree(nil, false)
	if !isRoot {
		n.Discover()
	}
}

func (n *Node) updateTree(parent *Node, pinned bool) {
	n.parentOverridden = pinned
	n.discoverable = !n.isRoot && !pinned

	old := n.parent
	if parent != old {
		n.parent = parent
		if old != nil {
			old.removeChild(n)
		}
		if parent != nil {
			parent.children = append(parent.children, n)
			// A node inserted between a parent and some of its children
			// takes those children over.
			for _, sibling := range slices.Clone(parent.children) {
				if sibling != n && sibling.discoverable && n.engine.contains(n.host, sibling.host) {
					sibling.Discover()
				}
			}
		}
		n.PingAll()
	}

	var root *Node
	switch {
	case n.isRoot:
		root = n
	case parent != nil:
		root = parent.root
	}
	n.updateRoot(root)
}

func (n *Node) removeChild(c *Node) {
	if i := slices.Index(n.children, c); i >= 0 {
		n.children = slices.Delete(n.children, i, i+1)
	}
}

func (n *Node) updateRoot(root *Node) {
	if n.root == root {
		return
	}
	n.root = root
	n.values.rootUpdated()
	for _, c := range slices.Clone(n.compOrder) {
		c.rootUpdated()
	}
	for _, child := range slices.Clone(n.children) {
		if !child.isRoot {
			child.updateRoot(root)
		}
	}
}

// Ping marks props as needing recomputation on this node. With no props
// every tracked prop is pinged.
func (n *Node) Ping(refreshParent bool, props ...*Prop) {
	if len(props) == 0 {
		n.values.pingAll(refreshParent)
		return
	}
	for _, p := range props {
		n.values.Ping(p, refreshParent)
	}
}

// PingAll recomputes every tracked prop of this node and makes the subtree
// re-resolve the ancestors its recursive props read from.
func (n *Node) PingAll() {
	n.values.pingAll(true)
	DeepScan(n, func(d *Node) bool {
		d.values.pingRecursive()
		return true
	}, false)
}

// AddGroup creates a named child node sharing this node's host. Discovery
// places hosts accepted by match under the group with the highest weight.
func (n *Node) AddGroup(name string, match func(Host) bool, weight int) *Node {
	if name == "" {
		panic(fmt.Errorf("treectx: group of %s needs a name", n))
	}
	if n.Group(name) != nil {
		panic(fmt.Errorf("treectx: group %q already exists on %s", name, n))
	}
	g := newNode(n.engine, n.host, name)
	n.groups = append(n.groups, &group{node: g, match: match, weight: weight})
	g.SetParent(n)
	// Children already placed in the other groups may belong to the new one.
	for _, other := range n.groups {
		for _, c := range other.node.children {
			if c.discoverable {
				c.Discover()
			}
		}
	}
	return g
}

func (n *Node) Group(name string) *Node {
	for _, g := range n.groups {
		if g.node.name == name {
			return g.node
		}
	}
	return nil
}

// RemoveGroup detaches a group and sends its children back to discovery.
func (n *Node) RemoveGroup(name string) bool {
	i := slices.IndexFunc(n.groups, func(g *group) bool { return g.node.name == name })
	if i < 0 {
		return false
	}
	g := n.groups[i].node
	n.groups = slices.Delete(n.groups, i, i+1)
	orphans := slices.Clone(g.children)
	g.updateTree(nil, true)
	for _, c := range orphans {
		c.Discover()
	}
	return true
}

func (n *Node) findGroup(host Host) *Node {
	var best *group
	for _, g := range n.groups {
		if g.match(host) && (best == nil || g.weight > best.weight) {
			best = g
		}
	}
	if best == nil {
		return n
	}
	return best.node
}

func (n *Node) setComponent(key any, def *Component, input any) {
	if c, ok := n.components[key]; ok {
		c.setInput(input)
		return
	}
	for _, dep := range def.deps {
		n.engine.checkProp(dep)
	}
	c := newComponent(def, n, input)
	n.components[key] = c
	n.compOrder = append(n.compOrder, c)
	c.start()
}

func (n *Node) removeComponent(key any) {
	c, ok := n.components[key]
	if !ok {
		return
	}
	delete(n.components, key)
	if i := slices.Index(n.compOrder, c); i >= 0 {
		n.compOrder = slices.Delete(n.compOrder, i, i+1)
	}
	c.dispose()
}

func (n *Node) HasComponent(def *Component) bool {
	_, ok := n.components[def.Key()]
	return ok
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].id < nodes[j].id })
}
