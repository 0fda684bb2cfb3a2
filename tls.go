package chord

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// loadCertPool reads a PEM-encoded CA bundle for verifying the peer on
// the other end of a TLS-secured RPC channel.
func loadCertPool(caFile string) (*x509.CertPool, error) {
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("chord: read CA file %s: %w", caFile, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("chord: no certificates parsed from %s", caFile)
	}
	return pool, nil
}

// tlsServerOption builds the grpc.ServerOption for a mutually
// authenticated TLS listener: the node's own certificate, plus client
// verification against caFile when supplied.
func tlsServerOption(cert tls.Certificate, caFile string) (grpc.ServerOption, error) {
	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{cert},
	}

	if caFile != "" {
		pool, err := loadCertPool(caFile)
		if err != nil {
			return nil, err
		}
		tlsConf.ClientCAs = pool
		tlsConf.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return grpc.Creds(credentials.NewTLS(tlsConf)), nil
}
