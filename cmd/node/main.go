package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"chordring/internal/config"
	"chordring/internal/domain"
	"chordring/internal/genfiles"
	"chordring/internal/logger"
	zapfactory "chordring/internal/logger/zap"
	"chordring/internal/node"
	"chordring/internal/portmap"
	"chordring/internal/ring"
	"chordring/internal/routingtable"
	"chordring/internal/server"
	"chordring/internal/storage"
	"chordring/internal/telemetry"
	"chordring/internal/transport"
)

var defaultConfigPath = "config/node/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewZapAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	lis, advertised, err := server.Listen(cfg.Node.Mode, cfg.Node.Bind, cfg.Node.Host, cfg.Node.Port)
	if err != nil {
		lgr.Error("fatal: failed to initialize listener", logger.F("err", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = lis.Close() }()
	lgr.Debug("created listener", logger.F("addr", advertised))

	space, err := ring.NewSpace(cfg.Ring.IDBits)
	if err != nil {
		lgr.Error("failed to initialize identifier space", logger.F("err", err.Error()))
		os.Exit(1)
	}
	lgr.Debug("identifier space initialized", logger.F("bits", space.Bits), logger.F("mod", space.Mod))

	var id ring.ID
	if cfg.Node.ID == "" {
		id = space.HashString(advertised)
	} else {
		raw, err := strconv.ParseUint(cfg.Node.ID, 10, 64)
		if err != nil {
			lgr.Error("invalid node.id in configuration", logger.F("err", err.Error()))
			os.Exit(1)
		}
		id = space.Reduce(raw)
	}
	self := &domain.Node{ID: id, Addr: advertised}
	lgr = lgr.Named("node").With(logger.FNode("self", self))
	lgr.Info("node identity resolved")

	shutdownTracing, err := telemetry.Init(cfg.Telemetry, "chordring-node", id)
	if err != nil {
		lgr.Error("failed to initialize telemetry", logger.F("err", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	rt := routingtable.New(self, space, cfg.Ring.SuccessorListSize, routingtable.WithLogger(lgr.Named("routingtable")))
	store := storage.NewMemoryStorage(space, lgr.Named("storage"))
	tc := transport.NewClient(
		transport.WithLogger(lgr.Named("transport")),
		transport.WithMaxElapsed(cfg.Ring.FailureTimeout),
	)

	n := node.New(rt, store, tc, node.WithLogger(lgr))

	srv := server.New(lis, n, server.WithLogger(lgr.Named("server")))
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()
	lgr.Info("server started")

	switch cfg.Bootstrap.Mode {
	case "init":
		n.Bootstrap()
		seed := genfiles.Generate(8, space)
		for _, f := range seed {
			store.Put(f)
		}
		lgr.Info("bootstrap: seeded initial ring", logger.F("fileCount", len(seed)))

	case "join":
		table, err := portmap.Load(cfg.Bootstrap.PortMapPath, space)
		if err != nil {
			lgr.Error("failed to load port map", logger.F("err", err.Error()))
			srv.Stop()
			os.Exit(1)
		}
		helperRaw, err := strconv.ParseUint(cfg.Bootstrap.HelperID, 10, 64)
		if err != nil {
			lgr.Error("invalid bootstrap.helperId", logger.F("err", err.Error()))
			srv.Stop()
			os.Exit(1)
		}
		helperAddr, ok := table.Lookup(space.Reduce(helperRaw))
		if !ok {
			lgr.Error("helper id not found in port map", logger.F("helperId", cfg.Bootstrap.HelperID))
			srv.Stop()
			os.Exit(1)
		}

		joinCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = n.JoinVia(joinCtx, helperAddr)
		cancel()
		if err != nil {
			lgr.Error("failed to join ring", logger.F("err", err.Error()))
			srv.Stop()
			os.Exit(1)
		}
		lgr.Info("joined ring", logger.F("helper", helperAddr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	n.StartMaintenance(ctx, cfg.Ring.StabilizeInterval, cfg.Ring.FixFingersInterval, cfg.Ring.SuccessorListInterval)
	lgr.Debug("maintenance loops started")

	go runShell(n, self)

	select {
	case <-ctx.Done():
		lgr.Info("shutdown signal received")
		stop()
		n.Stop()
		srv.Stop()
	case err := <-serveErr:
		lgr.Error("server terminated unexpectedly", logger.F("err", err.Error()))
		stop()
		n.Stop()
		os.Exit(1)
	}
}

// runShell implements spec.md §6's interactive commands over the node's own
// in-process state: address, neighbors, stored filenames, successor list,
// finger table, key lookup, and stop.
func runShell(n *node.Node, self *domain.Node) {
	l := liner.NewLiner()
	defer l.Close()
	l.SetCtrlCAborts(true)

	fmt.Printf("chordring node %s at %s\n", self.ID, self.Addr)
	fmt.Println("commands: address, neighbors, files, successors, fingers, lookup <id>, stop")

	for {
		input, err := l.Prompt(fmt.Sprintf("chordring[%s]> ", self.ID))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			return
		}
		l.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "address":
			fmt.Printf("%s/%s\n", self.ID, self.Addr)

		case "neighbors":
			rt := n.RoutingTable()
			fmt.Printf("predecessor: %s\n", nodeString(rt.GetPredecessor()))
			fmt.Printf("successor:   %s\n", nodeString(rt.FirstSuccessor()))

		case "files":
			files := n.Storage().All()
			fmt.Printf("stored files (%d):\n", len(files))
			for _, f := range files {
				fmt.Printf("  %s (key=%s)\n", f.Name, f.Key)
			}

		case "successors":
			for i, s := range n.RoutingTable().SuccessorList() {
				fmt.Printf("  [%d] %s\n", i, nodeString(s))
			}

		case "fingers":
			for i, f := range n.RoutingTable().FingerList() {
				fmt.Printf("  [%d] %s\n", i, nodeString(f))
			}

		case "lookup":
			if len(args) < 2 {
				fmt.Println("usage: lookup <id>")
				continue
			}
			raw, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				fmt.Printf("invalid id: %v\n", err)
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			owner, err := n.Successor(ctx, n.RoutingTable().Space().Reduce(raw))
			cancel()
			if err != nil {
				fmt.Printf("lookup failed: %v\n", err)
				continue
			}
			fmt.Printf("owner: %s\n", nodeString(owner))

		case "stop", "exit", "quit":
			fmt.Println("bye")
			return

		default:
			fmt.Printf("unknown command: %s\n", args[0])
		}
	}
}

func nodeString(n *domain.Node) string {
	if n == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("%s/%s", n.ID, n.Addr)
}
