// Command nodelink-probe runs a one-shot diagnostic pass against a
// NodeLink node: connect and authenticate, print identity and
// capabilities, collect the first state of every entity, command the
// first light, then disconnect.
//
// Usage:
//
//	nodelink-probe [flags]
//
// Flags:
//
//	-host string      Node hostname or IP (default "localhost")
//	-port uint        Node TCP port (default 6053)
//	-pwd string       Node password
//	-psk string       Pre-shared key for frame encryption
//	-config string    Node preset file (YAML)
//	-node string      Preset name from the config file
//	-timeout duration Bound state collection (default: wait forever)
//	-discover         Browse for nodes via mDNS and exit
//	-interactive      Drop into a command console instead of probing
//	-verbose          Log protocol traffic
//
// Examples:
//
//	# Probe a node by address
//	nodelink-probe -host bedroom.local -pwd secret
//
//	# Probe a preset from a config file
//	nodelink-probe -config nodes.yaml -node bedroom
//
//	# See which nodes are on the network
//	nodelink-probe -discover
//
// Exit codes: 0 on success, 1 when the node cannot be reached or any
// later step fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nodelink-protocol/nodelink-go/cmd/nodelink-probe/interactive"
	"github.com/nodelink-protocol/nodelink-go/pkg/config"
	"github.com/nodelink-protocol/nodelink-go/pkg/discovery"
	"github.com/nodelink-protocol/nodelink-go/pkg/log"
	"github.com/nodelink-protocol/nodelink-go/pkg/probe"
	"github.com/nodelink-protocol/nodelink-go/pkg/session"
	"github.com/nodelink-protocol/nodelink-go/pkg/wire"
)

type options struct {
	Host         string
	Port         uint
	Password     string
	PresharedKey string
	ConfigFile   string
	Node         string
	Timeout      time.Duration
	Discover     bool
	Interactive  bool
	Verbose      bool
}

var opts options

func init() {
	flag.StringVar(&opts.Host, "host", "localhost", "Node hostname or IP")
	flag.UintVar(&opts.Port, "port", wire.DefaultPort, "Node TCP port")
	flag.StringVar(&opts.Password, "pwd", "", "Node password")
	flag.StringVar(&opts.PresharedKey, "psk", "", "Pre-shared key for frame encryption")
	flag.StringVar(&opts.ConfigFile, "config", "", "Node preset file (YAML)")
	flag.StringVar(&opts.Node, "node", "", "Preset name from the config file")
	flag.DurationVar(&opts.Timeout, "timeout", 0, "Bound state collection (0 waits forever)")
	flag.BoolVar(&opts.Discover, "discover", false, "Browse for nodes via mDNS and exit")
	flag.BoolVar(&opts.Interactive, "interactive", false, "Drop into a command console instead of probing")
	flag.BoolVar(&opts.Verbose, "verbose", false, "Log protocol traffic")
}

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	var logger log.Logger
	if opts.Verbose {
		slogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		logger = log.NewSlogAdapter(slogger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.Discover {
		return runDiscover(ctx)
	}

	host := opts.Host
	port := uint16(opts.Port)
	password := opts.Password
	psk := opts.PresharedKey

	if opts.ConfigFile != "" {
		file, err := config.Load(opts.ConfigFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		node, err := file.Resolve(opts.Node)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		host = node.Host
		port = node.Port
		if node.Password != "" {
			password = node.Password
		}
		if node.PresharedKey != "" {
			psk = node.PresharedKey
		}
	} else if opts.Node != "" {
		fmt.Fprintln(os.Stderr, "-node requires -config")
		return 1
	}

	if opts.Interactive {
		return runInteractive(ctx, host, port, password, psk, logger)
	}

	code, err := probe.Run(ctx, probe.Config{
		Host:         host,
		Port:         port,
		Password:     password,
		PresharedKey: psk,
		Timeout:      opts.Timeout,
		Out:          os.Stdout,
		ErrOut:       os.Stderr,
		Logger:       logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
	}
	return code
}

func runDiscover(ctx context.Context) int {
	browseCtx, cancel := context.WithTimeout(ctx, discovery.BrowseTimeout)
	defer cancel()

	browser := discovery.NewBrowser(discovery.BrowserConfig{})
	results, err := browser.Browse(browseCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discovery failed: %v\n", err)
		return 1
	}

	fmt.Println("Browsing for nodes...")
	found := 0
	for svc := range results {
		found++
		fmt.Printf("  %s\n", svc)
		for _, addr := range svc.Addresses {
			fmt.Printf("    %s\n", addr)
		}
	}
	if found == 0 {
		fmt.Println("No nodes found.")
	}
	return 0
}

func runInteractive(ctx context.Context, host string, port uint16, password, psk string, logger log.Logger) int {
	sess, err := session.Connect(ctx, session.Config{
		Host:         host,
		Port:         port,
		Password:     password,
		PresharedKey: psk,
		Logger:       logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	console, err := interactive.New(sess)
	if err != nil {
		sess.Close()
		fmt.Fprintf(os.Stderr, "failed to start console: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(ctx)
	console.Run(ctx, cancel)

	if err := sess.Disconnect(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "disconnect: %v\n", err)
		return 1
	}
	return 0
}
