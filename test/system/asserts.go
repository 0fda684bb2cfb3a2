package system_test

import (
	"context"
	"math/big"
	"sort"

	chord "github.com/zzsoszz/chord-grpc"
	"github.com/stretchr/testify/assert"
)

// AssertConsistentRing verifies that all nodes form a single ring where
// each node's successor has that node as its predecessor.
func AssertConsistentRing(t assert.TestingT, nodes []*chord.Node) {
	assert.NotEmpty(t, nodes, "node list must not be empty")

	expectedSize := len(nodes)
	idToNode := make(map[string]*chord.Node)
	for _, node := range nodes {
		idToNode[node.Self().ID.String()] = node
	}

	visitedIds := make(map[string]bool)
	current := nodes[0]

	for i := 0; i <= expectedSize; i++ {
		currentID := current.Self().ID.String()

		if visitedIds[currentID] {
			if len(visitedIds) == expectedSize {
				return
			}
			t.Errorf("ring closed early after visiting %d nodes (expected %d)", len(visitedIds), expectedSize)
			return
		}
		visitedIds[currentID] = true

		successors := current.Successors()
		if !assert.NotEmpty(t, successors, "node %s has no successors", currentID) {
			return
		}

		successor := successors[0]
		next, ok := idToNode[successor.ID.String()]
		if !assert.True(t, ok, "successor %s is not a known node (from node %s)", successor.ID, currentID) {
			return
		}

		pred := next.Predecessor()
		if !assert.False(t, pred.IsNull(), "node %s has null predecessor (successor of node %s)", successor.ID, currentID) {
			return
		}
		assert.Equal(t, currentID, pred.ID.String(),
			"inconsistent links: node %s -> successor %s, but successor's predecessor is %s",
			currentID, successor.ID, pred.ID)

		current = next
	}

	t.Errorf("walked %d steps without closing the loop (visited %d unique nodes)", expectedSize+1, len(visitedIds))
}

// AssertConsistentLookupForKey verifies that every node resolves key to
// the same owning node.
func AssertConsistentLookupForKey(t assert.TestingT, ctx context.Context, nodes []*chord.Node, key []byte) {
	assert.NotEmpty(t, nodes, "node list must not be empty")

	expectedResult, err := nodes[0].Lookup(ctx, key)
	assert.NoError(t, err, "lookup failed on starting node")
	assert.False(t, expectedResult.IsNull(), "lookup returned NULL_NODE on starting node")

	for i := 1; i < len(nodes); i++ {
		node := nodes[i]
		actualResult, err := node.Lookup(ctx, key)
		assert.NoError(t, err, "lookup failed on node %d", i)
		assert.False(t, actualResult.IsNull(), "node %d returned NULL_NODE", i)
		assert.Equal(t, expectedResult.ID, actualResult.ID,
			"node %d returned different owner: expected %s, got %s", i, expectedResult.ID, actualResult.ID)
	}
}

// AssertFullRangeCover verifies that the sorted node identifiers cover
// the entire ring without gaps: every node's successor is its immediate
// neighbor in identifier order (spec §4.1's arc invariant), which is
// exactly what "every key has exactly one owner" requires.
func AssertFullRangeCover(t assert.TestingT, nodes []*chord.Node) {
	assert.NotEmpty(t, nodes, "node list must not be empty")

	ids := make([]*big.Int, len(nodes))
	idToNode := make(map[string]*chord.Node)
	for i, node := range nodes {
		ids[i] = node.Self().ID
		idToNode[node.Self().ID.String()] = node
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Cmp(ids[j]) < 0 })

	for i, id := range ids {
		node := idToNode[id.String()]
		next := ids[(i+1)%len(ids)]

		succs := node.Successors()
		if !assert.NotEmpty(t, succs, "node %s has no successors", id) {
			return
		}
		assert.Equal(t, next.String(), succs[0].ID.String(),
			"node %s's successor should be its immediate ring neighbor %s, got %s", id, next, succs[0].ID)
	}
}
