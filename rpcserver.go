package chord

import (
	"context"
	"math/big"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	chordrpc "github.com/zzsoszz/chord-grpc/rpc"
)

// rpcServer adapts a *Node to the wire-level chordrpc.ChordServer
// contract: unpack the request, call the internal method, repack the
// response. It carries no state of its own (spec §5, grounded on the
// teacher's rpcHandler).
type rpcServer struct {
	node *Node
}

// registerChordServer wires an rpcServer into a *grpc.Server.
func registerChordServer(s *grpc.Server, impl *rpcServer) {
	chordrpc.RegisterChordServer(s, impl)
}

func (r *rpcServer) summary() NodeRef {
	return r.node.self
}

func (r *rpcServer) Summary(ctx context.Context, _ *emptypb.Empty) (*chordrpc.Node, error) {
	return nodeToWire(r.summary()), nil
}

func (r *rpcServer) FindSuccessor(ctx context.Context, req *chordrpc.FindRequest) (*chordrpc.Node, error) {
	id := new(big.Int).SetBytes(req.ID)
	nodeQueried := nodeFromWire(req.NodeQueried)
	res := r.node.FindSuccessor(ctx, id, nodeQueried)
	return nodeToWire(res), nil
}

func (r *rpcServer) GetSuccessor(ctx context.Context, _ *emptypb.Empty) (*chordrpc.Node, error) {
	return nodeToWire(r.node.FirstSuccessor()), nil
}

func (r *rpcServer) ClosestPrecedingFinger(ctx context.Context, req *chordrpc.FindRequest) (*chordrpc.Node, error) {
	id := new(big.Int).SetBytes(req.ID)
	nodeQueried := nodeFromWire(req.NodeQueried)
	res := r.node.closestPrecedingFinger(ctx, id, nodeQueried)
	return nodeToWire(res), nil
}

func (r *rpcServer) GetPredecessor(ctx context.Context, _ *emptypb.Empty) (*chordrpc.Node, error) {
	return nodeToWire(r.node.Predecessor()), nil
}

func (r *rpcServer) SetPredecessor(ctx context.Context, req *chordrpc.Node) (*emptypb.Empty, error) {
	r.node.setPredecessor(nodeFromWire(req))
	return &emptypb.Empty{}, nil
}

func (r *rpcServer) Notify(ctx context.Context, req *chordrpc.Node) (*emptypb.Empty, error) {
	r.node.notify(nodeFromWire(req))
	return &emptypb.Empty{}, nil
}

func (r *rpcServer) UpdateFingerTable(ctx context.Context, req *chordrpc.UpdateFingerTableRequest) (*emptypb.Empty, error) {
	r.node.updateFingerTable(ctx, nodeFromWire(req.Node), int(req.Index))
	return &emptypb.Empty{}, nil
}
