package system_test

import (
	"context"
	"testing"
	"time"

	chord "github.com/zzsoszz/chord-grpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicClusterFormation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	setup := NewNodeSetup()

	nodes, err := setup.CreateClusterNodes(t, ctx, 2)
	require.NoError(t, err, "failed to create cluster nodes")
	defer setup.StopNodes(ctx, nodes)

	err = setup.ConnectCluster(ctx, nodes)
	require.NoError(t, err, "failed to connect cluster")

	key := []byte("test")

	assert.EventuallyWithT(t, func(ct *assert.CollectT) {
		AssertConsistentRing(ct, nodes)
		AssertConsistentLookupForKey(ct, ctx, nodes, key)
		AssertFullRangeCover(ct, nodes)
	}, 10*time.Second, 100*time.Millisecond)
}

func TestNodeShutdown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	setup := NewNodeSetup()

	nodes, err := setup.CreateClusterNodes(t, ctx, 3)
	require.NoError(t, err, "failed to create cluster nodes")
	defer setup.StopNodes(ctx, nodes)

	err = setup.ConnectCluster(ctx, nodes)
	require.NoError(t, err, "failed to connect cluster")

	err = nodes[1].Stop()
	require.NoError(t, err, "failed to stop node 1")

	ns := []*chord.Node{nodes[0], nodes[2]}

	assert.EventuallyWithT(t, func(ct *assert.CollectT) {
		AssertConsistentRing(ct, ns)
		AssertFullRangeCover(ct, ns)
	}, 10*time.Second, 100*time.Millisecond)
}

func Test2NodeShutdown(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	setup := NewNodeSetup()

	nodes, err := setup.CreateClusterNodes(t, ctx, 3)
	require.NoError(t, err, "failed to create cluster nodes")
	defer setup.StopNodes(ctx, nodes)

	err = setup.ConnectCluster(ctx, nodes)
	require.NoError(t, err, "failed to connect cluster")

	err = nodes[1].Stop()
	require.NoError(t, err, "failed to stop node 1")

	err = nodes[2].Stop()
	require.NoError(t, err, "failed to stop node 2")

	ns := []*chord.Node{nodes[0]}

	assert.EventuallyWithT(t, func(ct *assert.CollectT) {
		AssertConsistentRing(ct, ns)
		AssertFullRangeCover(ct, ns)
	}, 10*time.Second, 100*time.Millisecond)
}
