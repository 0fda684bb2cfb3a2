// Package rpc defines the wire messages and service descriptor for the
// Chord RPC surface. It plays the role that protoc-gen-go/
// protoc-gen-go-grpc output would normally play, hand-written because
// this module is never built with protoc available; see codec.go for
// how these plain structs are actually put on the wire.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// Node mirrors a chord.NodeRef on the wire. ID is big-endian bytes.
// Valid is the explicit presence flag: false means NULL_NODE,
// regardless of what ID happens to contain — big.Int.Bytes() returns
// an empty slice for the value 0, which is a legitimate ring position
// per spec §3, not absence, so presence cannot be inferred from ID's
// length.
type Node struct {
	Valid bool
	ID    []byte
	Name  string
	Host  string
	Port  int32
}

// FindRequest carries the target identifier plus the node the caller
// believes should be asked (used by both FindSuccessor and
// ClosestPrecedingFinger, which share the same (id, nodeQueried) shape).
type FindRequest struct {
	ID          []byte
	NodeQueried *Node
}

// UpdateFingerTableRequest carries the candidate node and finger index
// for the updateFingerTable push propagated during join.
type UpdateFingerTableRequest struct {
	Node  *Node
	Index int32
}

// ChordServer is the server-side contract for the Chord RPC surface
// (spec §5): the eight operations a peer may invoke on another.
type ChordServer interface {
	Summary(ctx context.Context, in *emptypb.Empty) (*Node, error)
	FindSuccessor(ctx context.Context, in *FindRequest) (*Node, error)
	GetSuccessor(ctx context.Context, in *emptypb.Empty) (*Node, error)
	ClosestPrecedingFinger(ctx context.Context, in *FindRequest) (*Node, error)
	GetPredecessor(ctx context.Context, in *emptypb.Empty) (*Node, error)
	SetPredecessor(ctx context.Context, in *Node) (*emptypb.Empty, error)
	Notify(ctx context.Context, in *Node) (*emptypb.Empty, error)
	UpdateFingerTable(ctx context.Context, in *UpdateFingerTableRequest) (*emptypb.Empty, error)
}

// ChordClient is the client-side stub, matching the shape
// protoc-gen-go-grpc emits for a unary-only service.
type ChordClient interface {
	Summary(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*Node, error)
	FindSuccessor(ctx context.Context, in *FindRequest, opts ...grpc.CallOption) (*Node, error)
	GetSuccessor(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*Node, error)
	ClosestPrecedingFinger(ctx context.Context, in *FindRequest, opts ...grpc.CallOption) (*Node, error)
	GetPredecessor(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*Node, error)
	SetPredecessor(ctx context.Context, in *Node, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Notify(ctx context.Context, in *Node, opts ...grpc.CallOption) (*emptypb.Empty, error)
	UpdateFingerTable(ctx context.Context, in *UpdateFingerTableRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type chordClient struct {
	cc grpc.ClientConnInterface
}

// NewChordClient wraps an established *grpc.ClientConn (or any
// grpc.ClientConnInterface, for testing) in the ChordClient stub.
func NewChordClient(cc grpc.ClientConnInterface) ChordClient {
	return &chordClient{cc: cc}
}

func (c *chordClient) Summary(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*Node, error) {
	out := new(Node)
	opts = append(opts, grpc.ForceCodec(gobCodec{}))
	if err := c.cc.Invoke(ctx, "/chord.ChordService/Summary", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chordClient) FindSuccessor(ctx context.Context, in *FindRequest, opts ...grpc.CallOption) (*Node, error) {
	out := new(Node)
	opts = append(opts, grpc.ForceCodec(gobCodec{}))
	if err := c.cc.Invoke(ctx, "/chord.ChordService/FindSuccessor", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chordClient) GetSuccessor(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*Node, error) {
	out := new(Node)
	opts = append(opts, grpc.ForceCodec(gobCodec{}))
	if err := c.cc.Invoke(ctx, "/chord.ChordService/GetSuccessor", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chordClient) ClosestPrecedingFinger(ctx context.Context, in *FindRequest, opts ...grpc.CallOption) (*Node, error) {
	out := new(Node)
	opts = append(opts, grpc.ForceCodec(gobCodec{}))
	if err := c.cc.Invoke(ctx, "/chord.ChordService/ClosestPrecedingFinger", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chordClient) GetPredecessor(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*Node, error) {
	out := new(Node)
	opts = append(opts, grpc.ForceCodec(gobCodec{}))
	if err := c.cc.Invoke(ctx, "/chord.ChordService/GetPredecessor", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chordClient) SetPredecessor(ctx context.Context, in *Node, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	opts = append(opts, grpc.ForceCodec(gobCodec{}))
	if err := c.cc.Invoke(ctx, "/chord.ChordService/SetPredecessor", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chordClient) Notify(ctx context.Context, in *Node, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	opts = append(opts, grpc.ForceCodec(gobCodec{}))
	if err := c.cc.Invoke(ctx, "/chord.ChordService/Notify", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chordClient) UpdateFingerTable(ctx context.Context, in *UpdateFingerTableRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	opts = append(opts, grpc.ForceCodec(gobCodec{}))
	if err := c.cc.Invoke(ctx, "/chord.ChordService/UpdateFingerTable", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
