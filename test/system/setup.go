package system_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"

	chord "github.com/zzsoszz/chord-grpc"
)

type NodeSetup struct {
	startPort atomic.Int32
	nodes     []*chord.Node
}

func NewNodeSetup() *NodeSetup {
	return &NodeSetup{
		nodes: make([]*chord.Node, 0),
	}
}

// CreateClusterNodes creates n chord nodes, started but not yet joined.
func (cs *NodeSetup) CreateClusterNodes(t *testing.T, ctx context.Context, n int) ([]*chord.Node, error) {
	nodes := make([]*chord.Node, 0, n)
	for i := 0; i < n; i++ {
		node, err := cs.CreateNode(t)
		if err != nil {
			cs.StopNodes(ctx, nodes)
			return nil, err
		}
		if err := node.Start(); err != nil {
			cs.StopNodes(ctx, nodes)
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (n int, err error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

// CreateNode creates a single chord node.
func (cs *NodeSetup) CreateNode(t *testing.T) (*chord.Node, error) {
	port := cs.startPort.Add(1)
	addr := fmt.Sprintf("localhost:%d", 15000+port)

	config := chord.Config{
		Name:       fmt.Sprintf("node-%d", port),
		BindAddr:   addr,
		AdvAddr:    addr,
		HashBits:   16,
		LogHandler: slog.NewTextHandler(&testLogWriter{t}, nil),
	}

	node, err := chord.New(config)
	if err != nil {
		return nil, err
	}
	cs.nodes = append(cs.nodes, node)

	return node, nil
}

// StopNodes stops all nodes and closes their gRPC servers.
func (cs *NodeSetup) StopNodes(ctx context.Context, nodes []*chord.Node) error {
	for _, node := range nodes {
		if err := node.Stop(); err != nil {
			fmt.Printf("error stopping node %s: %v\n", node.Self().Name, err)
		}
	}
	return nil
}

// GenerateRandomKeys generates count random keys of keySize bytes each.
func (cs *NodeSetup) GenerateRandomKeys(count int, keySize int) ([][]byte, error) {
	keys := make([][]byte, count)
	for i := 0; i < count; i++ {
		key := make([]byte, keySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate random key: %w", err)
		}
		keys[i] = key
	}
	return keys, nil
}

// ConnectCluster connects all nodes into a cluster: the first node
// creates the ring, the rest join through it.
func (cs *NodeSetup) ConnectCluster(ctx context.Context, nodes []*chord.Node) error {
	if len(nodes) == 0 {
		return fmt.Errorf("cannot create cluster with 0 nodes")
	}

	if err := nodes[0].Create(); err != nil {
		return fmt.Errorf("failed to create initial node: %w", err)
	}

	for i := 1; i < len(nodes); i++ {
		if err := nodes[i].Join(ctx, nodes[0].Self().Addr()); err != nil {
			return fmt.Errorf("failed to join node %d: %w", i, err)
		}
	}

	return nil
}
