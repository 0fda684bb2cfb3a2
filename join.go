package chord

import (
	"context"
	"fmt"
)

// Create initializes this node as the sole member of a new ring:
// predecessor and every finger point to self (spec §3 invariant 5).
func (n *Node) Create() error {
	n.mu.Lock()
	n.predecessor = n.self
	for i := range n.finger {
		n.finger[i].Successor = n.self
	}
	n.successors = make([]NodeRef, n.cfg.SuccessorListLen)
	for i := range n.successors {
		n.successors[i] = n.self
	}
	n.mu.Unlock()

	n.logger.Info("create: initialized new ring")
	return n.completeJoin(context.Background(), n.self)
}

// Join runs the Chord join protocol against a known peer at bootstrapAddr:
// initFingerTable followed by updateOthers (spec §4.3). It is the
// "known peer was provided" branch of joinCluster.
func (n *Node) Join(ctx context.Context, bootstrapAddr string) error {
	host, port, err := parseHostPort(bootstrapAddr)
	if err != nil {
		return err
	}

	known := NodeRef{Host: host, Port: port}
	if n.cfg.KnownID != nil {
		known.ID = n.space.Normalize(n.cfg.KnownID)
	} else {
		known.ID = n.space.HashAddr(n.cfg.HashFunc, host, port)
	}

	if known.ID.Cmp(n.self.ID) == 0 && known.Addr() != n.self.Addr() {
		return fmt.Errorf("chord: join: fatal id collision between %s and %s", n.self.Addr(), known.Addr())
	}
	if known.Addr() == n.self.Addr() {
		return n.Create()
	}

	if err := n.initFingerTable(ctx, known); err != nil {
		return fmt.Errorf("chord: join: %w", err)
	}
	n.updateOthers(ctx)

	pred := n.Predecessor()
	n.logger.Info("join: completed", "known", known.Addr(), "successor", n.FirstSuccessor().Addr())
	return n.completeJoin(ctx, pred)
}

// initFingerTable populates the finger table by bootstrapping through
// a known member (spec §4.3). finger[0].successor comes from nPrime's
// findSuccessor; subsequent entries reuse the previous entry's
// successor when it already covers the next start, querying nPrime
// only when it doesn't — this amortizes m lookups to O(m) but often
// fewer.
func (n *Node) initFingerTable(ctx context.Context, nPrime NodeRef) error {
	f0start := n.fingerAt(0).Start
	succ0 := n.FindSuccessor(ctx, f0start, nPrime)
	if succ0.IsNull() {
		return fmt.Errorf("bootstrap %s unreachable", nPrime.Addr())
	}
	n.setFingerSuccessor(0, succ0)

	cli, err := n.cp.dial(succ0)
	if err != nil {
		n.logRPCFailure("initFingerTable", "getPredecessor", succ0, err)
	} else {
		if pred, perr := cli.GetPredecessor(ctx); perr == nil {
			n.setPredecessor(pred)
		} else {
			n.logRPCFailure("initFingerTable", "getPredecessor", succ0, perr)
		}
		if serr := cli.SetPredecessor(ctx, n.self); serr != nil {
			n.logRPCFailure("initFingerTable", "setPredecessor", succ0, serr)
		}
	}

	m := n.fingerCount()
	for i := uint(0); i+1 < m; i++ {
		nextStart := n.fingerAt(i + 1).Start
		curSucc := n.fingerAt(i).Successor

		if IsInModuloRange(nextStart, n.self.ID, true, curSucc.ID, false) {
			n.setFingerSuccessor(i+1, curSucc)
			continue
		}
		s := n.FindSuccessor(ctx, nextStart, nPrime)
		n.setFingerSuccessor(i+1, s)
	}

	n.setSuccessors([]NodeRef{succ0})
	return nil
}

// updateOthers inserts this node into the finger tables of every node
// that must now point to it (spec §4.3): for each i, the predecessor
// of (selfId - 2^i) is asked to updateFingerTable(self, i).
func (n *Node) updateOthers(ctx context.Context) {
	m := n.fingerCount()
	for i := uint(0); i < m; i++ {
		pid := n.space.Sub(n.self.ID, i)
		p := n.findPredecessor(ctx, pid)
		if p.IsNull() || p.Equal(n.self) {
			continue
		}

		cli, err := n.cp.dial(p)
		if err != nil {
			n.logRPCFailure("updateOthers", "updateFingerTable", p, err)
			continue
		}
		if err := cli.UpdateFingerTable(ctx, n.self, int(i)); err != nil {
			n.logRPCFailure("updateOthers", "updateFingerTable", p, err)
		}
	}
}

// updateFingerTable is the RPC handler side of updateOthers (spec
// §4.3): if sNode now belongs in our own finger[i], adopt it and
// propagate the same call to our predecessor so the chain of nodes
// that must learn about sNode eventually terminates.
func (n *Node) updateFingerTable(ctx context.Context, sNode NodeRef, i int) {
	if i < 0 || uint(i) >= n.fingerCount() {
		return
	}
	if sNode.Equal(n.self) {
		return
	}

	cur := n.fingerAt(uint(i))
	if !IsInModuloRange(sNode.ID, n.self.ID, true, cur.Successor.ID, false) {
		return
	}
	n.setFingerSuccessor(uint(i), sNode)

	pred := n.Predecessor()
	if pred.IsNull() || pred.Equal(n.self) {
		return
	}
	cli, err := n.cp.dial(pred)
	if err != nil {
		n.logRPCFailure("updateFingerTable", "updateFingerTable", pred, err)
		return
	}
	if err := cli.UpdateFingerTable(ctx, sNode, i); err != nil {
		n.logRPCFailure("updateFingerTable", "updateFingerTable", pred, err)
	}
}

// completeJoin runs the data-migration hook and starts the periodic
// maintenance tasks. It is invoked exactly once, by either Create or
// Join (spec §4.3 steps 4-6).
func (n *Node) completeJoin(ctx context.Context, predecessor NodeRef) error {
	n.mu.Lock()
	if n.joined {
		n.mu.Unlock()
		return nil
	}
	n.joined = true
	n.stabilizeCtx, n.stabilizeCancel = context.WithCancel(context.Background())
	stabilizeCtx := n.stabilizeCtx
	n.mu.Unlock()

	n.runMigrationHook(predecessor)

	n.wg.Add(3)
	go n.runStabilizeLoop(stabilizeCtx)
	go n.runFixFingersLoop(stabilizeCtx)
	go n.runCheckPredecessorLoop(stabilizeCtx)

	return nil
}
