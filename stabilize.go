package chord

import (
	"context"
	"math/rand/v2"
	"time"
)

// runStabilizeLoop, runFixFingersLoop and runCheckPredecessorLoop are
// the three independent periodic tasks of spec §4.4/§5. Each is
// self-scheduling and tolerates overlap with the other two; none
// assumes exclusive access to node state (routingtable.go's accessors
// hold the lock only across the read/write itself, never across an
// RPC).
func (n *Node) runStabilizeLoop(ctx context.Context) {
	defer n.wg.Done()
	ticker := time.NewTicker(n.cfg.StabilizeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.stabilize(ctx)
		}
	}
}

func (n *Node) runFixFingersLoop(ctx context.Context) {
	defer n.wg.Done()
	ticker := time.NewTicker(n.cfg.FixFingersInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.fixFingers(ctx)
		}
	}
}

func (n *Node) runCheckPredecessorLoop(ctx context.Context) {
	defer n.wg.Done()
	ticker := time.NewTicker(n.cfg.CheckPredecessorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.checkPredecessor(ctx)
		}
	}
}

// stabilize repairs the successor pointer and notifies downstream
// (spec §4.4). It tolerates a null successor (pre-join or fully
// isolated) by doing nothing that round.
func (n *Node) stabilize(ctx context.Context) {
	s := n.FirstSuccessor()
	if s.IsNull() {
		return
	}

	var x NodeRef
	if s.Equal(n.self) {
		if n.stabilizeSelf(ctx) {
			x = n.self
		}
	} else {
		cli, err := n.cp.dial(s)
		if err != nil {
			n.logRPCFailure("stabilize", "getPredecessor", s, err)
			x = NullNode
		} else {
			pred, perr := cli.GetPredecessor(ctx)
			if perr != nil {
				n.logRPCFailure("stabilize", "getPredecessor", s, perr)
				x = NullNode
			} else {
				x = pred
			}
		}
	}

	if !x.IsNull() && IsInModuloRange(x.ID, n.self.ID, false, s.ID, false) {
		n.setFingerSuccessor(0, x)
		s = x
		succs := n.Successors()
		if len(succs) == 0 {
			succs = []NodeRef{s}
		} else {
			succs[0] = s
		}
		n.setSuccessors(succs)
	}

	n.notifyPeer(ctx, s)
	n.updateSuccessorTable(ctx)
}

// stabilizeSelf handles the degenerate case where this node's successor
// is itself (spec §4.4). If the predecessor is also unset, this node
// cannot recover and the call fails. If a distinct predecessor is alive,
// it is adopted as the new successor, kicking a singleton ring into a
// two-node ring. A predecessor equal to self means genuine isolation,
// which is not an error — the node is simply alone.
func (n *Node) stabilizeSelf(ctx context.Context) bool {
	pred := n.Predecessor()
	if pred.IsNull() {
		return false
	}
	if pred.Equal(n.self) {
		return true
	}

	if !n.checkPredecessor(ctx) {
		return false
	}

	n.setFingerSuccessor(0, pred)
	n.setSuccessors([]NodeRef{pred})
	return true
}

// notifyPeer sends notify(self) to peer, locally or via RPC.
func (n *Node) notifyPeer(ctx context.Context, peer NodeRef) {
	if peer.IsNull() {
		return
	}
	if peer.Equal(n.self) {
		n.notify(n.self)
		return
	}
	cli, err := n.cp.dial(peer)
	if err != nil {
		n.logRPCFailure("notifyPeer", "notify", peer, err)
		return
	}
	if err := cli.Notify(ctx, n.self); err != nil {
		n.logRPCFailure("notifyPeer", "notify", peer, err)
	}
}

// notify is the RPC handler invoked by a node believing itself to be
// our predecessor (spec §4.4). We adopt it only if we have no
// predecessor, or it is a closer predecessor than the one we have.
func (n *Node) notify(nPrime NodeRef) {
	if nPrime.IsNull() {
		return
	}
	pred := n.Predecessor()
	if pred.IsNull() || IsInModuloRange(nPrime.ID, pred.ID, false, n.self.ID, false) {
		n.setPredecessor(nPrime)
	}
}

// fixFingers refreshes one randomly chosen finger (spec §4.4). Random
// selection converges all fingers in expectation O(m log m) rounds
// without synchronizing work across fingers. Only overwrites on a
// successful (non-null) lookup.
func (n *Node) fixFingers(ctx context.Context) {
	m := n.fingerCount()
	if m <= 1 {
		return
	}
	i := 1 + rand.UintN(uint(m-1))
	start := n.fingerAt(uint(i)).Start
	succ := n.FindSuccessor(ctx, start, n.self)
	if succ.IsNull() {
		return
	}
	n.setFingerSuccessor(uint(i), succ)
}

// checkPredecessor pings the current predecessor (spec §4.4); any
// lightweight RPC suffices, so it reuses getPredecessor. On failure it
// wipes the predecessor so a future notify() can replace it.
func (n *Node) checkPredecessor(ctx context.Context) bool {
	pred := n.Predecessor()
	if pred.IsNull() || pred.Equal(n.self) {
		return true
	}

	cli, err := n.cp.dial(pred)
	if err != nil {
		n.logRPCFailure("checkPredecessor", "getPredecessor", pred, err)
		n.setPredecessor(NullNode)
		return false
	}
	if _, err := cli.GetPredecessor(ctx); err != nil {
		n.logRPCFailure("checkPredecessor", "getPredecessor", pred, err)
		n.setPredecessor(NullNode)
		return false
	}
	return true
}

// checkSuccessor reports whether the immediate successor is reachable.
func (n *Node) checkSuccessor(ctx context.Context) bool {
	return n.isAlive(ctx, n.FirstSuccessor())
}

func (n *Node) isAlive(ctx context.Context, peer NodeRef) bool {
	if peer.IsNull() {
		return false
	}
	if peer.Equal(n.self) {
		return true
	}
	cli, err := n.cp.dial(peer)
	if err != nil {
		return false
	}
	res, err := cli.Summary(ctx)
	return err == nil && !res.IsNull()
}

// updateSuccessorTable reconciles the successor list against the
// liveness of the immediate successor (spec §4.4). Its return is
// best-effort, not a meaningful pass/fail signal, so it returns
// nothing — callers re-derive state from Successors()/FirstSuccessor().
func (n *Node) updateSuccessorTable(ctx context.Context) {
	alive := n.checkSuccessor(ctx)
	succs := n.Successors()
	f0 := n.fingerAt(0).Successor

	if alive {
		if len(succs) == 0 {
			succs = []NodeRef{f0}
		} else {
			succs[0] = f0
		}
	} else {
		for len(succs) > 0 && !n.isAlive(ctx, succs[0]) {
			succs = succs[1:]
		}
		if len(succs) > 0 {
			n.setFingerSuccessor(0, succs[0])
		}
	}

	if len(succs) == 0 {
		succs = []NodeRef{n.self}
		n.setFingerSuccessor(0, n.self)
	}

	max := n.cfg.SuccessorListLen
	alone := len(succs) == 1 && succs[0].Equal(n.self)
	if uint(len(succs)) < max && !alone {
		succs = n.extendSuccessorList(ctx, succs, max)
	}

	if uint(len(succs)) > max {
		succs = succs[:max]
	}
	n.setSuccessors(succs)
}

// extendSuccessorList walks the existing list asking each member for
// its own successor, inserting any newly discovered member that lies
// beyond the current list (spec §4.4 step 4).
func (n *Node) extendSuccessorList(ctx context.Context, succs []NodeRef, max uint) []NodeRef {
	for i := 0; i < len(succs) && uint(len(succs)) < max; i++ {
		cand := n.getSuccessor(ctx, succs[i])
		if cand.IsNull() || cand.Equal(succs[i]) {
			continue
		}
		if IsInModuloRange(cand.ID, n.self.ID, true, succs[i].ID, true) {
			continue
		}
		if i+1 < len(succs) && succs[i+1].Equal(cand) {
			continue
		}
		tail := append([]NodeRef{cand}, succs[i+1:]...)
		succs = append(succs[:i+1:i+1], tail...)
	}
	return succs
}
