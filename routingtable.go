package chord

// This file holds the locked accessors over Node's routing state: the
// finger table, the successor list and the predecessor. Mutations here
// never hold the lock across an RPC (spec §9: "snapshot the peer
// reference, drop the lock, call, reacquire to apply results").

// Successors returns a defensive copy of the successor list.
func (n *Node) Successors() []NodeRef {
	n.mu.RLock()
	defer n.mu.RUnlock()

	cp := make([]NodeRef, len(n.successors))
	copy(cp, n.successors)
	return cp
}

// FirstSuccessor returns successorTable[0], or NullNode if unset.
func (n *Node) FirstSuccessor() NodeRef {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if len(n.successors) == 0 {
		return NullNode
	}
	return n.successors[0]
}

func (n *Node) setSuccessors(list []NodeRef) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successors = list
}

// Predecessor returns the current predecessor, or NullNode.
func (n *Node) Predecessor() NodeRef {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.predecessor
}

func (n *Node) setPredecessor(p NodeRef) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.predecessor = p
}

// FingerTable returns a defensive copy of the finger table.
func (n *Node) FingerTable() []FingerTableEntry {
	n.mu.RLock()
	defer n.mu.RUnlock()

	cp := make([]FingerTableEntry, len(n.finger))
	copy(cp, n.finger)
	return cp
}

func (n *Node) fingerAt(i uint) FingerTableEntry {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.finger[i]
}

func (n *Node) setFingerSuccessor(i uint, succ NodeRef) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finger[i].Successor = succ
}

// fingerCount returns m, the number of finger table rows.
func (n *Node) fingerCount() uint {
	return n.cfg.HashBits
}
