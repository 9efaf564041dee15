package treectx

type HostKind uint8

const (
	HostElement HostKind = iota
	HostDocument
	HostFragment
	HostOther
)

func (k HostKind) String() string {
	switch k {
	case HostElement:
		return "element"
	case HostDocument:
		return "document"
	case HostFragment:
		return "fragment"
	default:
		return "other"
	}
}

// Host is a node of the document the context tree mirrors. Hosts are used as
// map keys, so implementations should be pointers. Methods that return a Host
// must return an untyped nil when there is nothing to return.
type Host interface {
	HostKind() HostKind
	// ParentHost is the structural parent. For a shadow root this is the
	// element hosting it.
	ParentHost() Host
	// AssignedSlot is the slot a light-DOM child is projected into.
	AssignedSlot() Host
	// AutoContext reports whether discovery should create a node for this
	// host when it is found on another node's discovery path.
	AutoContext() bool
}
