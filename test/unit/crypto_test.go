package unit

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	chord "github.com/zzsoszz/chord-grpc"
	"github.com/stretchr/testify/require"
)

func setupNode(t *testing.T, name, bindAddr, advAddr string, ca string, certs *NodeCertFiles) *chord.Node {
	config := chord.Config{
		Name:       name,
		BindAddr:   bindAddr,
		AdvAddr:    advAddr,
		LogHandler: slog.NewTextHandler(os.Stdout, nil),
	}

	if certs != nil && certs.CertPath != "" {
		config.TLS = &chord.TLSConfig{
			CertFile: certs.CertPath,
			KeyFile:  certs.KeyPath,
			CAFile:   ca,
		}
	}

	n, err := chord.New(config)
	require.NoError(t, err, "node construction failed")
	require.NoError(t, n.Start(), "node failed to start")
	return n
}

func TestNodeSecure(t *testing.T) {
	certDir, ca, nodeFiles, err := GenerateMultiNodeCerts(2)
	require.NoError(t, err)
	defer CleanupTestCerts(certDir)

	nodeA := setupNode(t, "NodeA", ":12000", "localhost:12000", ca, &nodeFiles[0])
	defer nodeA.Stop()
	nodeB := setupNode(t, "NodeB", ":12001", "localhost:12001", ca, &nodeFiles[1])
	defer nodeB.Stop()

	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = nodeA.Create()
	require.NoError(t, err)

	err = nodeB.Join(ctxWithTimeout, "localhost:12000")
	require.NoError(t, err)
}

func TestSecureInsecureCannotJoin(t *testing.T) {
	certDir, ca, nodeFiles, err := GenerateMultiNodeCerts(1)
	require.NoError(t, err)
	defer CleanupTestCerts(certDir)

	nodeA := setupNode(t, "NodeA", ":12000", "localhost:12000", ca, &nodeFiles[0])
	defer nodeA.Stop()

	nodeB := setupNode(t, "NodeB", ":12001", "localhost:12001", "", nil)
	defer nodeB.Stop()

	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = nodeA.Create()
	require.NoError(t, err)

	err = nodeB.Join(ctxWithTimeout, "localhost:12000")
	require.Error(t, err)
}
