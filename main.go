// Command flipper captures outbound HTTP traffic and serves it to inspection
// tools.
//
// Usage:
//
//	flipper [-config flipper.yaml] [-addr 127.0.0.1:8089]
//	flipper -fetch https://example.com [-method POST] [-H 'Name: value'] [-data body]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simaofelgueirasJM/flipper/internal/app"
	"github.com/simaofelgueirasJM/flipper/internal/cli"
	"github.com/simaofelgueirasJM/flipper/internal/logging"
	"github.com/simaofelgueirasJM/flipper/internal/webclient"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	args, err := cli.ParseArgs(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flipper: %v\n", err)
		return 2
	}

	cfg := app.DefaultConfig()
	if args.ConfigPath != "" {
		cfg, err = app.LoadConfig(args.ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "flipper: %v\n", err)
			return 1
		}
	}

	a, err := app.NewApplication(cfg, args, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flipper: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args.FetchMode() {
		return fetch(ctx, a, args)
	}
	return serve(ctx, a)
}

func serve(ctx context.Context, a *app.Application) int {
	if err := a.Start(); err != nil {
		a.Logger.Error("start failed", logging.Err(err))
		_ = a.Shutdown(context.Background())
		return 1
	}

	code := 0
	select {
	case <-ctx.Done():
	case err := <-a.Done():
		if err != nil {
			a.Logger.Error("server stopped", logging.Err(err))
			code = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("shutdown failed", logging.Err(err))
		code = 1
	}
	return code
}

func fetch(ctx context.Context, a *app.Application, args *cli.CLIArgs) int {
	defer a.Shutdown(context.Background())

	req := &webclient.Request{
		Method:  args.Method,
		URL:     args.FetchURL,
		Headers: args.Headers,
	}
	if args.Data != "" {
		req.Body = []byte(args.Data)
	}

	tx, err := a.Fetch(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flipper: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tx); err != nil {
		fmt.Fprintf(os.Stderr, "flipper: %v\n", err)
		return 1
	}
	return 0
}
