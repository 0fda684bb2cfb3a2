package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	chord "github.com/zzsoszz/chord-grpc"
)

func main() {
	name := flag.String("name", "cord0", "name of the node")
	bindAddr := flag.String("addr", ":8000", "address to bind to")
	advAddr := flag.String("adv-addr", "", "address advertised to peers (defaults to localhost+addr)")
	hashBits := flag.Uint("m", 64, "identifier space bit width")
	joinAddr := flag.String("join", "", "address of a node to join")
	debug := flag.Bool("debug", false, "enable debug logging")

	certFile := flag.String("tls-cert", "", "TLS certificate file")
	keyFile := flag.String("tls-key", "", "TLS key file")
	caFile := flag.String("tls-ca", "", "TLS CA bundle for peer verification")

	flag.Parse()

	adv := *advAddr
	if adv == "" {
		adv = "localhost" + *bindAddr
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}

	cfg := chord.Config{
		Name:       *name,
		BindAddr:   *bindAddr,
		AdvAddr:    adv,
		HashBits:   *hashBits,
		Debug:      *debug,
		LogHandler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}),
	}

	if *certFile != "" && *keyFile != "" {
		cfg.TLS = &chord.TLSConfig{
			CertFile: *certFile,
			KeyFile:  *keyFile,
			CAFile:   *caFile,
		}
	}

	node, err := chord.New(cfg)
	if err != nil {
		panic(err)
	}

	if err := node.Start(); err != nil {
		panic(err)
	}
	fmt.Println("node started at", *bindAddr)

	if *joinAddr == "" {
		if err := node.Create(); err != nil {
			panic(err)
		}
		fmt.Println("cluster created")
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("joining cluster...")
		if err := node.Join(ctx, *joinAddr); err != nil {
			panic(err)
		}
		fmt.Println("joined cluster")
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("enter keys to look up (Ctrl+D to exit):")
	for scanner.Scan() {
		key := scanner.Text()
		if key == "" {
			continue
		}

		owner, err := node.Lookup(context.Background(), []byte(key))
		if err != nil {
			fmt.Printf("error looking up %q: %v\n", key, err)
			continue
		}
		fmt.Printf("%q -> %s (%s)\n", key, owner.Name, owner.Addr())
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error reading from stdin: %v\n", err)
	}
}
