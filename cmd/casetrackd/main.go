package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/casetrack/casetrack"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (config.toml)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := casetrack.LoadConfig(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	cfg.ApplyEnvOverrides()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := casetrack.New(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	slog.Info("casetrackd ready", "tools", len(engine.ToolNames()))

	if err := serve(ctx, engine, os.Stdin, os.Stdout); err != nil {
		slog.Error("serve loop exited", "error", err)
		os.Exit(1)
	}
	slog.Info("casetrackd stopped")
}

// request is one line of stdin: a tool invocation keyed by a
// caller-assigned id so responses can be matched to requests even
// though this loop processes them strictly in arrival order.
type request struct {
	ID   string          `json:"id"`
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

// response is one line written to stdout per request, echoing its id.
type response struct {
	ID      string                   `json:"id"`
	Content []casetrack.ContentBlock `json:"content"`
	IsError bool                     `json:"isError,omitempty"`
}

// serve reads newline-delimited JSON requests from in, dispatches each
// to engine, and writes one newline-delimited JSON response per request
// to out. It returns when in reaches EOF, ctx is cancelled, or a read
// error occurs; a malformed line produces an error response rather than
// aborting the loop, so one bad line can't take down a long session.
func serve(ctx context.Context, engine *casetrack.Engine, in *os.File, out *os.File) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if encErr := enc.Encode(response{IsError: true, Content: []casetrack.ContentBlock{
				{Type: "text", Text: fmt.Sprintf("invalid request: %v", err)},
			}}); encErr != nil {
				return encErr
			}
			continue
		}

		resp := dispatch(ctx, engine, req)
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// dispatch runs one request against engine, recovering a panicking
// handler into an error response instead of crashing the daemon.
func dispatch(ctx context.Context, engine *casetrack.Engine, req request) (resp response) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool handler panicked", "tool", req.Tool, "panic", r)
			resp = response{
				ID:      req.ID,
				IsError: true,
				Content: []casetrack.ContentBlock{{Type: "text", Text: fmt.Sprintf("internal error: %v", r)}},
			}
		}
	}()

	result := engine.Dispatch(ctx, req.Tool, req.Args)
	return response{ID: req.ID, Content: result.Content, IsError: result.IsError}
}
