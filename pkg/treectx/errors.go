package treectx

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidProp = errors.New("treectx: invalid prop")
	ErrNilSetter   = errors.New("treectx: setter must be non-nil and comparable")
	ErrNilValue    = errors.New("treectx: value must not be nil")
	ErrHookOrder   = errors.New("treectx: hooks called out of order")
)

// CycleError is reported when a prop keeps changing within a single update
// pass of a node.
type CycleError struct {
	Key   string
	Node  *Node
	Limit int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("treectx: cyclical prop %q on %s: recomputed more than %d times in one pass", e.Key, e.Node, e.Limit)
}
