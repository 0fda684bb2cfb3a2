package chord

import (
	"context"
	"math/big"
)

// maxFindPredecessorHopsCap bounds findPredecessor's loop (spec §4.2, §9):
// "m * 2^m" is the letter of the spec, but that overflows sanity well
// before m reaches a few dozen bits, so it is capped. Any finite cap
// >= m suffices for the liveness argument.
const maxFindPredecessorHopsCap = 1 << 20

func (n *Node) findPredecessorHopCap() int {
	m := n.fingerCount()
	if m == 0 {
		return 1
	}
	// m * 2^m, saturating at the cap.
	if m > 20 {
		return maxFindPredecessorHopsCap
	}
	hops := int(m) << m
	if hops <= 0 || hops > maxFindPredecessorHopsCap {
		return maxFindPredecessorHopsCap
	}
	return hops
}

// FindSuccessor resolves the node responsible for id. If nodeQueried is
// this node the lookup runs entirely locally; otherwise it is forwarded
// over RPC. Any RPC failure degrades to NullNode rather than raising
// (spec §4.2, §7) — the caller cannot distinguish "peer said null" from
// "peer unreachable".
func (n *Node) FindSuccessor(ctx context.Context, id *big.Int, nodeQueried NodeRef) NodeRef {
	if nodeQueried.Equal(n.self) {
		pred := n.findPredecessor(ctx, id)
		return n.getSuccessor(ctx, pred)
	}

	cli, err := n.cp.dial(nodeQueried)
	if err != nil {
		n.logRPCFailure("FindSuccessor", "findSuccessorRemoteHelper", nodeQueried, err)
		return NullNode
	}
	res, err := cli.FindSuccessor(ctx, id, nodeQueried)
	if err != nil {
		n.logRPCFailure("FindSuccessor", "findSuccessorRemoteHelper", nodeQueried, err)
		return NullNode
	}
	return res
}

// findPredecessor walks the ring towards id's predecessor, advancing
// via closestPrecedingFinger until id falls in (n'.id, n'.successor.id].
// It always returns the last node known to be good; it never raises.
func (n *Node) findPredecessor(ctx context.Context, id *big.Int) NodeRef {
	cur := n.self

	for i, cap := 0, n.findPredecessorHopCap(); i < cap; i++ {
		if ctx.Err() != nil {
			return cur
		}

		succ := n.getSuccessor(ctx, cur)
		if succ.IsNull() {
			return cur
		}
		if cur.ID.Cmp(succ.ID) == 0 {
			// ring of one: cur is its own successor.
			return cur
		}
		if IsInModuloRange(id, cur.ID, false, succ.ID, true) {
			return cur
		}

		next := n.closestPrecedingFinger(ctx, id, cur)
		if next.IsNull() {
			return cur
		}
		if next.Equal(cur) {
			// no finger made progress; cur is as close as we can get.
			return cur
		}
		cur = next
	}

	return cur
}

// closestPrecedingFinger scans nodeQueried's finger table from i=m-1
// down to 0 for the first entry whose successor lies strictly between
// nodeQueried and id, returning nodeQueried itself if none qualify
// (spec §4.2). Dispatches over RPC when nodeQueried isn't self.
func (n *Node) closestPrecedingFinger(ctx context.Context, id *big.Int, nodeQueried NodeRef) NodeRef {
	if !nodeQueried.Equal(n.self) {
		cli, err := n.cp.dial(nodeQueried)
		if err != nil {
			n.logRPCFailure("closestPrecedingFinger", "closestPrecedingFingerRemoteHelper", nodeQueried, err)
			return NullNode
		}
		res, err := cli.ClosestPrecedingFinger(ctx, id, nodeQueried)
		if err != nil {
			n.logRPCFailure("closestPrecedingFinger", "closestPrecedingFingerRemoteHelper", nodeQueried, err)
			return NullNode
		}
		return res
	}

	m := n.fingerCount()
	for i := int(m) - 1; i >= 0; i-- {
		f := n.fingerAt(uint(i))
		if f.Successor.IsNull() {
			continue
		}
		if IsInModuloRange(f.Successor.ID, n.self.ID, false, id, false) {
			return f.Successor
		}
	}
	return n.self
}

// getSuccessor returns nodeQueried's immediate successor, locally or
// over RPC. Both paths answer with the head of that node's successor
// list (FirstSuccessor), not with its finger[0] entry.
func (n *Node) getSuccessor(ctx context.Context, nodeQueried NodeRef) NodeRef {
	if nodeQueried.Equal(n.self) {
		return n.FirstSuccessor()
	}

	cli, err := n.cp.dial(nodeQueried)
	if err != nil {
		n.logRPCFailure("getSuccessor", "getSuccessorRemoteHelper", nodeQueried, err)
		return NullNode
	}
	res, err := cli.GetSuccessor(ctx)
	if err != nil {
		n.logRPCFailure("getSuccessor", "getSuccessorRemoteHelper", nodeQueried, err)
		return NullNode
	}
	return res
}

// Lookup is the public entry point: it hashes key into the ring and
// resolves the responsible node starting from this node.
func (n *Node) Lookup(ctx context.Context, key []byte) (NodeRef, error) {
	if err := ctx.Err(); err != nil {
		return NullNode, err
	}
	id := n.space.HashKey(n.cfg.HashFunc, key)
	return n.FindSuccessor(ctx, id, n.self), nil
}

// logRPCFailure writes the structured failure record spec §7 requires:
// (local method, remote method, peer host, peer port, cause).
func (n *Node) logRPCFailure(localMethod, remoteMethod string, peer NodeRef, cause error) {
	n.logger.Warn("rpc call failed",
		"local_method", localMethod,
		"remote_method", remoteMethod,
		"peer_host", peer.Host,
		"peer_port", peer.Port,
		"cause", cause,
	)
}
