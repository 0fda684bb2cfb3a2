package chord

import (
	"context"
	"math/big"
	"testing"
)

// newTestNode builds an m=3 node with id=selfID, bound to a throwaway
// loopback address, without starting the RPC server or the periodic
// maintenance tasks.
func newTestNode(t *testing.T, selfID int64, addr string) *Node {
	t.Helper()
	n, err := New(Config{
		BindAddr: addr,
		AdvAddr:  addr,
		HashBits: 3,
		SelfID:   big.NewInt(selfID),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}

// TestSingleNodeRing covers spec §8 scenario 1: a lone node with id=1,
// m=3. After Create, predecessor and every finger must be self, and
// every lookup must resolve to self.
func TestSingleNodeRing(t *testing.T) {
	n := newTestNode(t, 1, "127.0.0.1:19001")
	defer n.Stop()

	if err := n.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pred := n.Predecessor()
	if !pred.Equal(n.Self()) {
		t.Errorf("predecessor = %v, expected self", pred)
	}
	for i, f := range n.FingerTable() {
		if !f.Successor.Equal(n.Self()) {
			t.Errorf("finger[%d].successor = %v, expected self", i, f.Successor)
		}
	}

	got := n.FindSuccessor(context.Background(), big.NewInt(5), n.Self())
	if !got.Equal(n.Self()) {
		t.Errorf("FindSuccessor(5) = %v, expected self", got)
	}
}

// TestClosestPrecedingFingerScanOrder covers spec §8 scenario 3's
// finger table for node 1 in the ring {1, 3, 5}: starts {2,3,5} map to
// successors {3,3,5}. closestPrecedingFinger(4) must return the finger
// at the highest index whose successor lies strictly inside (self, id).
func TestClosestPrecedingFingerScanOrder(t *testing.T) {
	n := newTestNode(t, 1, "127.0.0.1:19002")
	defer n.Stop()

	three := NodeRef{ID: big.NewInt(3), Host: "127.0.0.1", Port: 19003}
	five := NodeRef{ID: big.NewInt(5), Host: "127.0.0.1", Port: 19005}

	n.setFingerSuccessor(0, three) // start=2 -> 3
	n.setFingerSuccessor(1, three) // start=3 -> 3
	n.setFingerSuccessor(2, five)  // start=5 -> 5

	got := n.closestPrecedingFinger(context.Background(), big.NewInt(4), n.Self())
	if !got.Equal(three) {
		t.Errorf("closestPrecedingFinger(4) = %v, expected node 3", got)
	}
}

// TestClosestPrecedingFingerFallsBackToQueried verifies that when no
// finger's successor lies in the open interval, the queried node
// itself is returned (spec §4.2: "if none, return nodeQueried itself").
func TestClosestPrecedingFingerFallsBackToQueried(t *testing.T) {
	n := newTestNode(t, 1, "127.0.0.1:19006")
	defer n.Stop()

	// Every finger points at self: nothing can lie strictly between
	// self and any id.
	for i := range n.FingerTable() {
		n.setFingerSuccessor(uint(i), n.Self())
	}

	got := n.closestPrecedingFinger(context.Background(), big.NewInt(6), n.Self())
	if !got.Equal(n.Self()) {
		t.Errorf("closestPrecedingFinger fallback = %v, expected self", got)
	}
}

// TestNotifyAdoptsCloserPredecessor covers spec §4.4's notify handler:
// a closer predecessor is adopted; a farther or unrelated one is not.
func TestNotifyAdoptsCloserPredecessor(t *testing.T) {
	n := newTestNode(t, 5, "127.0.0.1:19007")
	defer n.Stop()

	if !n.Predecessor().IsNull() {
		t.Fatal("fresh node should start with a null predecessor")
	}

	candidate := NodeRef{ID: big.NewInt(2), Host: "127.0.0.1", Port: 19002}
	n.notify(candidate)
	if !n.Predecessor().Equal(candidate) {
		t.Fatalf("predecessor = %v, expected %v after first notify", n.Predecessor(), candidate)
	}

	farther := NodeRef{ID: big.NewInt(1), Host: "127.0.0.1", Port: 19001}
	n.notify(farther)
	if !n.Predecessor().Equal(candidate) {
		t.Errorf("predecessor = %v, a farther notify must not displace the closer one", n.Predecessor())
	}

	closer := NodeRef{ID: big.NewInt(4), Host: "127.0.0.1", Port: 19004}
	n.notify(closer)
	if !n.Predecessor().Equal(closer) {
		t.Errorf("predecessor = %v, expected %v after a closer notify", n.Predecessor(), closer)
	}
}
