package treectx

import "slices"

// FindParent returns the nearest ancestor of start (or start itself when
// includeSelf is set) accepted by pred.
func FindParent(start *Node, pred func(*Node) bool, includeSelf bool) *Node {
	n := start
	if !includeSelf {
		n = start.parent
	}
	for ; n != nil; n = n.parent {
		if pred(n) {
			return n
		}
	}
	return nil
}

// DeepScan visits the subtree of start in pre-order. Returning false from
// visit skips the children of the visited node.
func DeepScan(start *Node, visit func(*Node) bool, includeSelf bool) {
	if includeSelf && !visit(start) {
		return
	}
	for _, child := range slices.Clone(start.children) {
		DeepScan(child, visit, true)
	}
}
