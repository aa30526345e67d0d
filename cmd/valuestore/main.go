// Command valuestore is a single-process demo REPL over the value-type
// engine: it reads whitespace-separated commands from stdin and prints
// their replies, exercising store.Store the way a real server's command
// loop would, without any of the networking a real server needs.
//
// Deliberately built on the standard library's flag package rather than a
// full CLI framework (cobra, urfave/cli): those frameworks are sized for
// multi-command servers with subcommands and config files, and this
// binary has exactly two flags.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/thebagchi/valuestore/config"
	"github.com/thebagchi/valuestore/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file (defaults are used if empty)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger := mustLogger(*verbose)
	defer logger.Sync()

	cfg := config.New()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
		}
		cfg = loaded
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st := store.New(cfg, logger)
	go st.Run(ctx)

	repl(ctx, st, logger)
}

func mustLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func repl(ctx context.Context, st *store.Store, logger *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	sink := &printSink{}
	fmt.Println("valuestore> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		name := strings.ToUpper(fields[0])
		args := fields[1:]
		if name == "QUIT" || name == "EXIT" {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		st.Submit(ctx, sink, name, args, false)
	}
	if err := scanner.Err(); err != nil {
		logger.Error("reading stdin", zap.Error(err))
	}
}

// printSink renders replies the way a terminal client would, independent
// of whatever wire protocol a real deployment would speak.
type printSink struct{}

func (printSink) Send(r store.Reply) {
	switch r.Kind {
	case store.KindOK:
		fmt.Println("OK")
	case store.KindInt:
		fmt.Println(strconv.FormatInt(r.Int, 10))
	case store.KindBulk:
		fmt.Printf("%q\n", r.Bulk)
	case store.KindArray:
		if len(r.Array) == 0 {
			fmt.Println("(empty array)")
			return
		}
		for i, v := range r.Array {
			fmt.Printf("%d) %q\n", i+1, v)
		}
	case store.KindNil:
		fmt.Println("(nil)")
	case store.KindError:
		fmt.Printf("(error) %v\n", r.Err)
	}
}
