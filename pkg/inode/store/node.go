package store

import (
	"sync"

	. "github.com/weberc2/extentfs/pkg/types"
)

// Payload is the block an open inode keeps decoded in memory: the extent
// index of a regular file or the entry table of a directory.
type Payload interface {
	Dirty() bool
	Flush() error
}

// Node is the single shared in-memory copy of an open inode. Everybody who
// acquires the same inode number from a Cache gets the same *Node.
type Node struct {
	Inode

	// Deleted is set once the inode has been released; handles that still
	// hold the node must stop using it.
	Deleted bool

	payload     Payload
	payloadLock sync.Mutex
	dirty       bool
	refs        int

	prev *Node
	next *Node
}

// MarkDirty schedules the inode record for write-back.
func (node *Node) MarkDirty() { node.dirty = true }

func (node *Node) Dirty() bool { return node.dirty }

// clean reports whether neither the record nor a loaded payload needs
// writing back.
func (node *Node) clean() bool {
	if node.dirty {
		return false
	}
	payload := node.LoadedPayload()
	return payload == nil || !payload.Dirty()
}

// Payload returns the node's payload, calling `load` the first time.
// Concurrent callers see a single load.
func (node *Node) Payload(load func(*Inode) (Payload, error)) (Payload, error) {
	node.payloadLock.Lock()
	defer node.payloadLock.Unlock()
	if node.payload == nil {
		payload, err := load(&node.Inode)
		if err != nil {
			return nil, err
		}
		node.payload = payload
	}
	return node.payload, nil
}

// SetPayload installs the payload of a newly created inode.
func (node *Node) SetPayload(payload Payload) {
	node.payloadLock.Lock()
	node.payload = payload
	node.payloadLock.Unlock()
}

// LoadedPayload returns the payload if it was ever loaded.
func (node *Node) LoadedPayload() Payload {
	node.payloadLock.Lock()
	defer node.payloadLock.Unlock()
	return node.payload
}
