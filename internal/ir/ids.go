// Package ir defines the in-memory intermediate representation consumed by
// the duplicator and the metadata/IL emitter: modules, types, members and the
// statement/expression trees of method bodies.
//
// Every node carries a NodeID handed out by an Arena. All identity-keyed
// session state (duplication maps, token maps) keys off NodeID and never off
// structural equality, because the graph is cyclic and shares nodes freely.
package ir

import (
	"fmt"
	"sync/atomic"
)

// NodeID is a process-unique dense node handle.
type NodeID uint32

// NoNodeID marks a node that was never registered with an arena.
const NoNodeID NodeID = 0

// IsValid returns true if the ID is valid (non-zero).
func (id NodeID) IsValid() bool { return id != NoNodeID }

// Node is embedded by every identity-bearing IR node.
type Node struct {
	ID NodeID
}

// NodeID returns the node handle.
func (n *Node) NodeID() NodeID {
	if n == nil {
		return NoNodeID
	}
	return n.ID
}

// Identified is implemented by every node that embeds Node.
type Identified interface {
	NodeID() NodeID
}

// Arena hands out node identities. IDs are allocated monotonically and are
// never reused, so one arena can be shared by every program loaded into a
// process (for example all inputs of a merge).
type Arena struct {
	last atomic.Uint32
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Next allocates a fresh node ID.
func (a *Arena) Next() NodeID {
	id := a.last.Add(1)
	if id == 0 {
		panic("ir: node id space exhausted")
	}
	return NodeID(id)
}

// Len returns the number of IDs allocated so far.
func (a *Arena) Len() int {
	return int(a.last.Load())
}

// Register stamps n with a fresh ID unless it already has one.
func (a *Arena) Register(n *Node) NodeID {
	if n.ID == NoNodeID {
		n.ID = a.Next()
	}
	return n.ID
}

func (id NodeID) String() string {
	return fmt.Sprintf("#%d", uint32(id))
}
