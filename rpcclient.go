package chord

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/big"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	chordrpc "github.com/zzsoszz/chord-grpc/rpc"
)

// peerClient is the node-facing view of the RPC surface (spec §5),
// implemented once over a real gRPC channel and once as a direct
// in-process dispatch for self-addressed calls.
type peerClient interface {
	Summary(ctx context.Context) (NodeRef, error)
	FindSuccessor(ctx context.Context, id *big.Int, nodeQueried NodeRef) (NodeRef, error)
	GetSuccessor(ctx context.Context) (NodeRef, error)
	ClosestPrecedingFinger(ctx context.Context, id *big.Int, nodeQueried NodeRef) (NodeRef, error)
	GetPredecessor(ctx context.Context) (NodeRef, error)
	SetPredecessor(ctx context.Context, p NodeRef) error
	Notify(ctx context.Context, nPrime NodeRef) error
	UpdateFingerTable(ctx context.Context, sNode NodeRef, i int) error
	Close() error
}

// clientPool caches one peerClient per peer address, reusing the
// teacher's dial-once-per-address scheme (spec §5: "resolves/caches
// channels"). A peer whose address equals our own advertised address
// dispatches locally instead of round-tripping through gRPC.
type clientPool struct {
	node *Node

	mu      sync.Mutex
	clients map[string]peerClient
}

func newClientPool(n *Node) *clientPool {
	return &clientPool{
		node:    n,
		clients: make(map[string]peerClient),
	}
}

func (p *clientPool) dial(peer NodeRef) (peerClient, error) {
	if peer.IsNull() {
		return nil, fmt.Errorf("chord: cannot dial NULL_NODE")
	}

	addr := peer.Addr()
	if addr == p.node.self.Addr() {
		return &localClient{node: p.node}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if cli, ok := p.clients[addr]; ok {
		return cli, nil
	}

	cli, err := newGRPCClient(p.node, addr)
	if err != nil {
		return nil, err
	}
	p.clients[addr] = cli
	return cli, nil
}

func (p *clientPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for addr, cli := range p.clients {
		if err := cli.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("chord: close client %s: %w", addr, err)
		}
	}
	p.clients = make(map[string]peerClient)
	return firstErr
}

// grpcClient is the real-network peerClient, backed by a single
// *grpc.ClientConn reused across calls.
type grpcClient struct {
	conn *grpc.ClientConn
	cli  chordrpc.ChordClient
}

func newGRPCClient(n *Node, addr string) (peerClient, error) {
	host, _, err := parseHostPort(addr)
	if err != nil {
		return nil, err
	}
	creds, err := clientTransportCredentials(n.cfg.TLS, host)
	if err != nil {
		return nil, err
	}

	// Every outbound call gets the configured RPCTimeout as its deadline.
	timeout := n.cfg.RPCTimeout
	deadline := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds), grpc.WithUnaryInterceptor(deadline))
	if err != nil {
		return nil, fmt.Errorf("chord: dial %s: %w", addr, err)
	}

	return &grpcClient{
		conn: conn,
		cli:  chordrpc.NewChordClient(conn),
	}, nil
}

func clientTransportCredentials(cfg *TLSConfig, serverName string) (credentials.TransportCredentials, error) {
	if cfg == nil {
		return insecure.NewCredentials(), nil
	}

	tlsConf := &tls.Config{ServerName: serverName}
	if cfg.CAFile != "" {
		pool, err := loadCertPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		tlsConf.RootCAs = pool
	}
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("chord: load client TLS cert: %w", err)
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}
	return credentials.NewTLS(tlsConf), nil
}

func (c *grpcClient) Summary(ctx context.Context) (NodeRef, error) {
	resp, err := c.cli.Summary(ctx, &emptypb.Empty{})
	if err != nil {
		return NullNode, err
	}
	return nodeFromWire(resp), nil
}

func (c *grpcClient) FindSuccessor(ctx context.Context, id *big.Int, nodeQueried NodeRef) (NodeRef, error) {
	req := &chordrpc.FindRequest{ID: id.Bytes(), NodeQueried: nodeToWire(nodeQueried)}
	resp, err := c.cli.FindSuccessor(ctx, req)
	if err != nil {
		return NullNode, err
	}
	return nodeFromWire(resp), nil
}

func (c *grpcClient) GetSuccessor(ctx context.Context) (NodeRef, error) {
	resp, err := c.cli.GetSuccessor(ctx, &emptypb.Empty{})
	if err != nil {
		return NullNode, err
	}
	return nodeFromWire(resp), nil
}

func (c *grpcClient) ClosestPrecedingFinger(ctx context.Context, id *big.Int, nodeQueried NodeRef) (NodeRef, error) {
	req := &chordrpc.FindRequest{ID: id.Bytes(), NodeQueried: nodeToWire(nodeQueried)}
	resp, err := c.cli.ClosestPrecedingFinger(ctx, req)
	if err != nil {
		return NullNode, err
	}
	return nodeFromWire(resp), nil
}

func (c *grpcClient) GetPredecessor(ctx context.Context) (NodeRef, error) {
	resp, err := c.cli.GetPredecessor(ctx, &emptypb.Empty{})
	if err != nil {
		return NullNode, err
	}
	return nodeFromWire(resp), nil
}

func (c *grpcClient) SetPredecessor(ctx context.Context, p NodeRef) error {
	_, err := c.cli.SetPredecessor(ctx, nodeToWire(p))
	return err
}

func (c *grpcClient) Notify(ctx context.Context, nPrime NodeRef) error {
	_, err := c.cli.Notify(ctx, nodeToWire(nPrime))
	return err
}

func (c *grpcClient) UpdateFingerTable(ctx context.Context, sNode NodeRef, i int) error {
	req := &chordrpc.UpdateFingerTableRequest{Node: nodeToWire(sNode), Index: int32(i)}
	_, err := c.cli.UpdateFingerTable(ctx, req)
	return err
}

func (c *grpcClient) Close() error {
	return c.conn.Close()
}

// localClient calls the same Node methods the rpcServer handlers call,
// bypassing gRPC entirely for self-addressed calls (spec §5's
// "dispatch" variant, grounded on the teacher's rpcClientDispatch).
type localClient struct {
	node *Node
}

func (c *localClient) Summary(ctx context.Context) (NodeRef, error) {
	return (&rpcServer{node: c.node}).summary(), nil
}

func (c *localClient) FindSuccessor(ctx context.Context, id *big.Int, nodeQueried NodeRef) (NodeRef, error) {
	return c.node.FindSuccessor(ctx, id, nodeQueried), nil
}

func (c *localClient) GetSuccessor(ctx context.Context) (NodeRef, error) {
	return c.node.FirstSuccessor(), nil
}

func (c *localClient) ClosestPrecedingFinger(ctx context.Context, id *big.Int, nodeQueried NodeRef) (NodeRef, error) {
	return c.node.closestPrecedingFinger(ctx, id, nodeQueried), nil
}

func (c *localClient) GetPredecessor(ctx context.Context) (NodeRef, error) {
	return c.node.Predecessor(), nil
}

func (c *localClient) SetPredecessor(ctx context.Context, p NodeRef) error {
	c.node.setPredecessor(p)
	return nil
}

func (c *localClient) Notify(ctx context.Context, nPrime NodeRef) error {
	c.node.notify(nPrime)
	return nil
}

func (c *localClient) UpdateFingerTable(ctx context.Context, sNode NodeRef, i int) error {
	c.node.updateFingerTable(ctx, sNode, i)
	return nil
}

func (c *localClient) Close() error {
	return nil
}

// nodeToWire and nodeFromWire cross the chord.NodeRef <-> rpc.Node
// boundary, translating the NULL_NODE sentinel to/from the explicit
// Valid flag. Presence is never inferred from ID's byte length: a node
// whose identifier hashes to 0 has an empty ID.Bytes() too, and is
// still a live, addressable ring member (spec §3).
func nodeToWire(n NodeRef) *chordrpc.Node {
	if n.IsNull() {
		return &chordrpc.Node{}
	}
	return &chordrpc.Node{
		Valid: true,
		ID:    n.ID.Bytes(),
		Name:  n.Name,
		Host:  n.Host,
		Port:  int32(n.Port),
	}
}

func nodeFromWire(w *chordrpc.Node) NodeRef {
	if w == nil || !w.Valid {
		return NullNode
	}
	return NodeRef{
		ID:   new(big.Int).SetBytes(w.ID),
		Name: w.Name,
		Host: w.Host,
		Port: int(w.Port),
	}
}
