// Package chord implements the ring membership and routing core of a
// Chord distributed hash table node: finger table construction, the
// findSuccessor/findPredecessor/closestPrecedingFinger lookup
// algorithm, and the periodic stabilization protocol that keeps a
// cluster of nodes converged on a consistent-hashing ring.
//
// Key/value storage, data migration, process bootstrap and transport
// framing beyond the RPC surface are external collaborators; see
// Config.OnJoinComplete for the storage hand-off hook.
package chord

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
)

const (
	// DefaultStabilizeInterval is how often stabilize() runs.
	DefaultStabilizeInterval = time.Second
	// DefaultFixFingersInterval is how often fixFingers() runs.
	DefaultFixFingersInterval = 3 * time.Second
	// DefaultCheckPredecessorInterval is how often checkPredecessor() runs.
	DefaultCheckPredecessorInterval = time.Second
	// DefaultRPCTimeout bounds every outbound RPC (spec §5).
	DefaultRPCTimeout = 500 * time.Millisecond
)

// TLSConfig carries the server and client TLS material for the RPC
// channel. Nil means plaintext (insecure.NewCredentials()).
type TLSConfig struct {
	CertFile string
	KeyFile  string
	CAFile   string
}

// Config is the configuration consumed by the core (spec §6).
type Config struct {
	Name     string // operator-facing label, plays no role in ring arithmetic
	BindAddr string
	AdvAddr  string

	HashBits uint     // m; defaults to 64
	HashFunc HashFunc // injectable (host,port) -> id hash; defaults to SHA-256 mod 2^m
	SelfID   *big.Int // optional explicit self id, otherwise derived from AdvAddr

	KnownAddr string   // not read by the core; Join takes the bootstrap address as its argument
	KnownID   *big.Int // optional explicit id for the known peer

	Debug bool

	StabilizeInterval        time.Duration
	FixFingersInterval       time.Duration
	CheckPredecessorInterval time.Duration
	RPCTimeout               time.Duration

	SuccessorListLen uint // defaults to HashBits; "length <= m" per spec §3

	LogHandler slog.Handler

	// OnJoinComplete is the migrateKeysAfterJoin hook of spec §6. It is
	// invoked exactly once, after the finger table is initialized and
	// before the periodic maintenance tasks start. A panic inside it is
	// recovered and logged; the core does not prescribe its contract.
	OnJoinComplete func(self, predecessor NodeRef) error

	TLS *TLSConfig
}

// NodeRef identifies a ring member by (id, host, port). The zero value,
// with ID == nil, is NULL_NODE: "unknown or unreachable".
type NodeRef struct {
	ID   *big.Int
	Name string
	Host string
	Port int
}

// NullNode is the sentinel denoting an unknown or unreachable peer.
var NullNode = NodeRef{}

// IsNull reports whether n is the NULL_NODE sentinel.
func (n NodeRef) IsNull() bool {
	return n.ID == nil
}

// Equal compares two NodeRefs by identifier. Two null refs are equal;
// a null ref equals nothing else.
func (n NodeRef) Equal(o NodeRef) bool {
	if n.IsNull() || o.IsNull() {
		return n.IsNull() == o.IsNull()
	}
	return n.ID.Cmp(o.ID) == 0
}

// Addr returns the "host:port" dial string for n.
func (n NodeRef) Addr() string {
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

// FingerTableEntry is one row of the finger table: start = (selfId +
// 2^i) mod 2^m, and the current best-known successor of start.
type FingerTableEntry struct {
	Start     *big.Int
	Successor NodeRef
}

// Node is a single Chord ring participant.
type Node struct {
	cfg   Config
	space *Space
	self  NodeRef

	logger *slog.Logger
	cp     *clientPool

	mu          sync.RWMutex
	finger      []FingerTableEntry
	successors  []NodeRef
	predecessor NodeRef
	joined      bool

	ln      net.Listener
	srv     *grpc.Server
	started bool

	stabilizeCtx    context.Context
	stabilizeCancel context.CancelFunc
	wg              sync.WaitGroup
}

// New constructs a Node from config. Id collision between distinct
// addresses is checked lazily at Join time (spec §6), since the
// known peer's id may not be supplied up front.
func New(cfg Config) (*Node, error) {
	if cfg.BindAddr == "" || cfg.AdvAddr == "" {
		return nil, fmt.Errorf("chord: host/port (BindAddr/AdvAddr) must be set")
	}

	if cfg.HashBits == 0 {
		cfg.HashBits = 64
	}
	space, err := NewSpace(cfg.HashBits)
	if err != nil {
		return nil, err
	}
	if cfg.SuccessorListLen == 0 {
		cfg.SuccessorListLen = cfg.HashBits
	}
	if cfg.StabilizeInterval == 0 {
		cfg.StabilizeInterval = DefaultStabilizeInterval
	}
	if cfg.FixFingersInterval == 0 {
		cfg.FixFingersInterval = DefaultFixFingersInterval
	}
	if cfg.CheckPredecessorInterval == 0 {
		cfg.CheckPredecessorInterval = DefaultCheckPredecessorInterval
	}
	if cfg.RPCTimeout == 0 {
		cfg.RPCTimeout = DefaultRPCTimeout
	}
	if cfg.LogHandler == nil {
		cfg.LogHandler = slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	host, port, splitErr := parseHostPort(cfg.AdvAddr)
	if splitErr != nil {
		return nil, splitErr
	}

	selfID := cfg.SelfID
	if selfID == nil {
		selfID = space.HashAddr(cfg.HashFunc, host, port)
	} else {
		selfID = space.Normalize(selfID)
	}

	n := &Node{
		cfg:   cfg,
		space: space,
		self: NodeRef{
			ID:   selfID,
			Name: cfg.Name,
			Host: host,
			Port: port,
		},
	}
	n.logger = slog.New(cfg.LogHandler).With(
		"name", n.self.Name,
		"self_id", n.self.ID.String(),
		"self_address", n.self.Addr(),
	)
	n.cp = newClientPool(n)
	n.initFingerTableShape()

	return n, nil
}

// initFingerTableShape allocates the m finger slots with their
// immutable `Start` values (invariant 1, spec §3). Successors start
// nil/unset until Create/Join populates them.
func (n *Node) initFingerTableShape() {
	m := n.cfg.HashBits
	n.finger = make([]FingerTableEntry, m)
	for i := uint(0); i < m; i++ {
		n.finger[i] = FingerTableEntry{
			Start:     n.space.Offset(n.self.ID, i),
			Successor: NullNode,
		}
	}
}

// Self returns this node's own NodeRef.
func (n *Node) Self() NodeRef {
	return n.self
}

// Space returns the identifier space this node was configured with.
func (n *Node) Space() *Space {
	return n.space
}

// Start begins listening for RPCs. It must be called before
// Create/Join.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started {
		return fmt.Errorf("chord: node already started")
	}

	opts, err := n.serverOptions()
	if err != nil {
		return err
	}

	n.srv = grpc.NewServer(opts...)
	registerChordServer(n.srv, &rpcServer{node: n})

	ln, err := net.Listen("tcp", n.cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("chord: listen %s: %w", n.cfg.BindAddr, err)
	}
	n.ln = ln
	n.started = true

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.srv.Serve(ln); err != nil {
			n.logger.Error("grpc server stopped", "error", err)
		}
	}()

	n.logger.Info("node started", "bind", n.cfg.BindAddr, "address", n.self.Addr())
	return nil
}

func (n *Node) serverOptions() ([]grpc.ServerOption, error) {
	if n.cfg.TLS == nil {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(n.cfg.TLS.CertFile, n.cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("chord: load server TLS cert: %w", err)
	}
	opt, err := tlsServerOption(cert, n.cfg.TLS.CAFile)
	if err != nil {
		return nil, err
	}
	return []grpc.ServerOption{opt}, nil
}

// Stop halts the periodic maintenance tasks and the RPC server.
func (n *Node) Stop() error {
	n.mu.Lock()
	if n.joined && n.stabilizeCancel != nil {
		n.stabilizeCancel()
		n.joined = false
	}
	started := n.started
	n.started = false
	n.mu.Unlock()

	if started {
		n.srv.GracefulStop()
	}
	n.wg.Wait()
	return n.cp.Close()
}
