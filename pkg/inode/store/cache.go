package store

import (
	"fmt"
	"sync"

	. "github.com/weberc2/extentfs/pkg/types"
)

// Cache hands out shared nodes. Referenced nodes always stay resident;
// unreferenced ones are kept in least-recently-used order up to `capacity`
// and evicted from the tail. Only clean nodes are evicted: a dirty node stays
// resident until Flush, so nothing reaches the device between syncs.
type Cache struct {
	// backend is read on a miss and written on flush
	backend  InodeStore
	capacity int

	mutex  sync.Mutex
	lookup map[Ino]*Node
	head   *Node
	tail   *Node
	idle   int
}

func NewCache(backend InodeStore, capacity int) *Cache {
	return &Cache{
		backend:  backend,
		capacity: capacity,
		lookup:   make(map[Ino]*Node),
	}
}

// Acquire returns the node for `ino`, reading it from the backend if it isn't
// resident. Every Acquire needs a matching Release.
func (c *Cache) Acquire(ino Ino) (*Node, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, exists := c.lookup[ino]; exists {
		if node.refs == 0 {
			c.unlink(node)
		}
		node.refs++
		return node, nil
	}

	node := &Node{refs: 1}
	if err := c.backend.Get(ino, &node.Inode); err != nil {
		return nil, fmt.Errorf("acquiring inode `%d`: %w", ino, err)
	}
	c.lookup[ino] = node
	return node, nil
}

// Insert registers a newly created inode as a dirty, referenced node. The
// caller must Release it.
func (c *Cache) Insert(inode *Inode) *Node {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	node := &Node{Inode: *inode, dirty: true, refs: 1}
	if old, exists := c.lookup[inode.Ino]; exists && old.refs == 0 {
		c.unlink(old)
	}
	c.lookup[inode.Ino] = node
	return node
}

// Release drops a reference. The node becomes evictable when none remain
// and it is clean.
func (c *Cache) Release(node *Node) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	node.refs--
	if node.refs > 0 || node.Deleted {
		return
	}
	c.pushFront(node)
	c.trim()
}

// Forget drops a deleted node without writing it back. Holders of the node
// observe `Deleted`.
func (c *Cache) Forget(node *Node) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	node.Deleted = true
	if node.refs == 0 {
		c.unlink(node)
	}
	if c.lookup[node.Ino] == node {
		delete(c.lookup, node.Ino)
	}
}

// Flush writes back every dirty node, referenced or not, and then evicts
// down to capacity.
func (c *Cache) Flush() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, node := range c.lookup {
		if err := c.writeBack(node); err != nil {
			return fmt.Errorf("flushing inode cache: %w", err)
		}
	}
	c.trim()
	return nil
}

// Drop forgets every node. Callers Flush first.
func (c *Cache) Drop() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.lookup = make(map[Ino]*Node)
	c.head, c.tail, c.idle = nil, nil, 0
}

// Len is the number of resident nodes.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.lookup)
}

// Nodes calls `f` with every resident node.
func (c *Cache) Nodes(f func(*Node)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, node := range c.lookup {
		f(node)
	}
}

func (c *Cache) writeBack(node *Node) error {
	if node.dirty {
		if err := c.backend.Put(&node.Inode); err != nil {
			return err
		}
		node.dirty = false
	}
	if payload := node.LoadedPayload(); payload != nil && payload.Dirty() {
		if err := payload.Flush(); err != nil {
			return fmt.Errorf("flushing block of inode `%d`: %w", node.Ino, err)
		}
	}
	return nil
}

// trim evicts clean idle nodes from the tail until at most `capacity` idle
// nodes remain or only dirty ones are left.
func (c *Cache) trim() {
	for victim := c.tail; victim != nil && c.idle > c.capacity; {
		prev := victim.prev
		if victim.clean() {
			c.unlink(victim)
			delete(c.lookup, victim.Ino)
		}
		victim = prev
	}
}

func (c *Cache) pushFront(node *Node) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
	c.idle++
}

func (c *Cache) unlink(node *Node) {
	// if node is not the head, then it has a non-nil `prev` whose `next` must
	// skip over node; otherwise the head moves to node.next
	if node != c.head {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}

	// likewise for the tail
	if node != c.tail {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.prev, node.next = nil, nil
	c.idle--
}
