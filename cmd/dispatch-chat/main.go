// Command dispatch-chat is a terminal chat client for a go-dispatch server.
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	dispatch "github.com/a-essam23/go-dispatch-client"
)

const (
	shutdownTimeout = 5 * time.Second
	connectTimeout  = 10 * time.Second
)

func main() {
	cfg := dispatch.DefaultConfig()

	endpoint := flag.String("endpoint", envOr("DISPATCH_ENDPOINT", cfg.Endpoint), "WebSocket endpoint (e.g. ws://127.0.0.1:8080/ws)")
	name := flag.String("name", os.Getenv("DISPATCH_NAME"), "display name; prompted for when empty")
	secret := flag.String("secret", envOr("DISPATCH_JWT_SECRET", cfg.Credential.Secret), "HS256 key shared with the server")
	issuer := flag.String("issuer", envOr("DISPATCH_JWT_ISSUER", cfg.Credential.Issuer), "credential issuer (iss)")
	audience := flag.String("audience", envOr("DISPATCH_JWT_AUDIENCE", cfg.Credential.Audience), "credential audience (aud)")
	compress := flag.Bool("compress", false, "offer permessage-deflate")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg.Endpoint = *endpoint
	cfg.Credential = dispatch.CredentialConfig{Secret: *secret, Issuer: *issuer, Audience: *audience}
	cfg.Compression = *compress

	sink := newConsoleSink(os.Stdout)
	client, err := dispatch.New(cfg, sink, dispatch.WithLogger(logger))
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"dispatch-client": func(ctx context.Context) error {
				return client.Close()
			},
		},
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(client, sink, *name, os.Stdin)
	}()

	select {
	case code := <-wait:
		os.Exit(code)
	case <-done:
		client.Close()
	}
}

// runREPL connects as name (prompting for it until a connect succeeds) and
// sends every input line. Commands: /quit, /reconnect, /name <new name>.
func runREPL(client *dispatch.Client, sink *consoleSink, name string, in io.Reader) {
	scanner := bufio.NewScanner(in)
	ctx := context.Background()
	connect := func(name string) error {
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return client.Connect(ctx, name)
	}

	connected := false
	if strings.TrimSpace(name) != "" {
		connected = connect(name) == nil
	}
	for !connected {
		sink.prompt("Username: ")
		if !scanner.Scan() {
			return
		}
		name = scanner.Text()
		connected = connect(name) == nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " "); cmd {
		case "/quit", "/exit":
			return
		case "/reconnect":
			connect(name)
		case "/name":
			if connect(arg) == nil {
				name = arg
			}
		default:
			// failures reach the sink; blank lines are dropped quietly
			client.Send(ctx, line)
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("error reading input", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
