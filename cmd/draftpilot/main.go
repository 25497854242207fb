// Package main is the draftpilot command line driver. It loads a block
// document, runs one AI edit session against it, and writes the result
// to stdout. A replay file substitutes a scripted stream for a live
// provider, which keeps the full pipeline runnable offline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/draftpilot/internal/ai/prompt"
	"github.com/dshills/draftpilot/internal/ai/request"
	"github.com/dshills/draftpilot/internal/ai/session"
	"github.com/dshills/draftpilot/internal/ai/transport"
	"github.com/dshills/draftpilot/internal/config"
	"github.com/dshills/draftpilot/internal/document"
	"github.com/dshills/draftpilot/internal/event"
	"github.com/dshills/draftpilot/internal/history"
	"github.com/dshills/draftpilot/internal/suggest"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

type options struct {
	configPath string
	docPath    string
	promptText string
	replayPath string
	format     string
	decision   string
	verbose    bool
}

func run() int {
	opts := parseFlags()

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	ai := cfg.AI()

	doc, err := loadDocument(opts.docPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load document: %v\n", err)
		return 1
	}

	tr, err := buildTransport(opts, ai)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create transport: %v\n", err)
		return 1
	}

	format := ai.Format
	if opts.format != "" {
		format = opts.format
	}
	pf, err := prompt.ParseFormat(format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	marks := suggest.NewSet(doc)
	builder := request.NewBuilder(
		prompt.NewFormatter(pf, prompt.DefaultTemplates()),
		request.Params{Model: ai.Model, MaxTokens: ai.MaxTokens, Temperature: ai.Temperature},
	)

	bus := event.NewBus()
	if opts.verbose {
		_, _ = bus.SubscribeFunc("session.**", func(ev event.Event) error {
			fmt.Fprintf(os.Stderr, "%s %v\n", ev.Topic, ev.Payload)
			return nil
		})
	}

	stepDelay := ai.StepDelay
	if opts.replayPath != "" {
		stepDelay = 0
	}

	hist := history.New(doc, cfg.History().MaxEntries)

	sess := session.New(doc, marks, builder, tr,
		session.WithBus(bus),
		session.WithHistory(hist),
		session.WithStepDelay(stepDelay),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		sess.Close()
		cancel()
	}()

	if err := sess.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := sess.Submit(ctx, opts.promptText, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	sess.Wait()

	switch sess.State() {
	case session.StateUserReviewing:
	case session.StateClosed:
		// Cancelled before completion.
		return 1
	default:
		if f := sess.Failure(); f != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", f)
		}
		return 1
	}

	for _, f := range sess.ValidationFailures() {
		fmt.Fprintf(os.Stderr, "Warning: operation rejected: %v\n", f.Err)
	}

	switch opts.decision {
	case "accept":
		if err := sess.Accept(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	case "reject":
		if err := sess.Reject(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	default:
		printMarks(marks)
		if err := sess.Accept(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	out, err := prompt.SerializeDocument(doc.Snapshot(), pf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(out)
	return 0
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.docPath, "doc", "", "Path to the block document (JSON)")
	flag.StringVar(&opts.promptText, "prompt", "", "Edit instruction for the model")
	flag.StringVar(&opts.promptText, "p", "", "Edit instruction for the model (shorthand)")
	flag.StringVar(&opts.replayPath, "replay", "", "Replay a scripted chunk file instead of calling a provider")
	flag.StringVar(&opts.format, "format", "", "Output format (markdown, json, html)")
	flag.StringVar(&opts.decision, "decision", "", "Review decision: accept or reject (default: print marks and accept)")
	flag.BoolVar(&opts.verbose, "verbose", false, "Print session events to stderr")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Draftpilot - AI document editing engine\n\n")
		fmt.Fprintf(os.Stderr, "Usage: draftpilot -doc file.json -prompt \"instruction\" [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  draftpilot -doc notes.json -p \"tighten the intro\"\n")
		fmt.Fprintf(os.Stderr, "  draftpilot -doc notes.json -p \"rewrite\" -replay stream.json\n")
		fmt.Fprintf(os.Stderr, "  draftpilot -doc notes.json -p \"rewrite\" -decision reject\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("Draftpilot %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.docPath == "" || opts.promptText == "" {
		flag.Usage()
		os.Exit(2)
	}
	return opts
}

func loadConfig(path string) (*config.Config, error) {
	paths := config.Paths{Project: "draftpilot.toml"}
	if path != "" {
		paths = config.Paths{User: path}
	} else if home, err := os.UserHomeDir(); err == nil {
		paths.User = home + "/.config/draftpilot/config.toml"
	}
	return config.Load(paths)
}

// jsonBlock is the on-disk block shape.
type jsonBlock struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	Props    map[string]any `json:"props,omitempty"`
	Children []jsonBlock    `json:"children,omitempty"`
}

func loadDocument(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []jsonBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	blocks := make([]*document.Block, len(raw))
	for i := range raw {
		blocks[i] = toBlock(&raw[i])
	}
	return document.FromBlocks(blocks...)
}

func toBlock(jb *jsonBlock) *document.Block {
	b := &document.Block{
		ID:      document.BlockID(jb.ID),
		Type:    jb.Type,
		Content: document.PlainText(jb.Text),
		Props:   document.Props(jb.Props),
	}
	if b.ID == "" {
		b.ID = document.NewBlockID()
	}
	if b.Type == "" {
		b.Type = "paragraph"
	}
	for i := range jb.Children {
		b.Children = append(b.Children, toBlock(&jb.Children[i]))
	}
	return b
}

// jsonChunk is the on-disk replay chunk shape.
type jsonChunk struct {
	Kind  string `json:"kind"`
	Call  string `json:"call,omitempty"`
	Tool  string `json:"tool,omitempty"`
	Delta string `json:"delta,omitempty"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func buildTransport(opts options, ai config.AIConfig) (transport.Transport, error) {
	if opts.replayPath == "" {
		tr, err := transport.New(transport.Config{Provider: ai.Provider, APIKey: ai.APIKey})
		if err != nil {
			return nil, err
		}
		retries := ai.MaxRetries
		if retries < 0 {
			retries = 0
		}
		return transport.NewRetry(tr, uint64(retries)), nil
	}

	data, err := os.ReadFile(opts.replayPath)
	if err != nil {
		return nil, err
	}
	var raw []jsonChunk
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", opts.replayPath, err)
	}

	script := make([]transport.Chunk, 0, len(raw)+1)
	for _, jc := range raw {
		c := transport.Chunk{CallID: jc.Call, ToolName: jc.Tool, ArgumentDelta: jc.Delta, Text: jc.Text}
		switch jc.Kind {
		case "text":
			c.Kind = transport.ChunkText
		case "tool-delta":
			c.Kind = transport.ChunkToolDelta
		case "tool-done":
			c.Kind = transport.ChunkToolDone
		case "done":
			c.Kind = transport.ChunkDone
		case "error":
			c.Kind = transport.ChunkError
			c.Err = errors.New(jc.Error)
		default:
			return nil, fmt.Errorf("parsing %s: unknown chunk kind %q", opts.replayPath, jc.Kind)
		}
		script = append(script, c)
	}
	if len(script) == 0 || script[len(script)-1].Kind != transport.ChunkDone {
		script = append(script, transport.Chunk{Kind: transport.ChunkDone})
	}
	sc := transport.NewScripted(script)
	sc.FragmentSize = 24
	return sc, nil
}

func printMarks(marks *suggest.Set) {
	for _, m := range marks.Pending() {
		fmt.Fprintf(os.Stderr, "suggestion %s on %s\n", m.Kind, m.Block)
	}
}
