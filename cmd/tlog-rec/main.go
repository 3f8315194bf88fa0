package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alxayo/go-tlog/internal/logger"
	"github.com/alxayo/go-tlog/internal/tlog/chunk"
	hooks "github.com/alxayo/go-tlog/internal/tlog/notify"
	"github.com/alxayo/go-tlog/internal/tlog/packet"
	"github.com/alxayo/go-tlog/internal/tlog/packetsrc"
	"github.com/alxayo/go-tlog/internal/tlog/sink"
	"github.com/alxayo/go-tlog/internal/tlog/transport"
	"github.com/alxayo/go-tlog/internal/tlog/tstamp"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		// flag parse errors were already printed by the flag package;
		// print the error itself so validation failures are visible too
		fmt.Fprintln(os.Stderr, "tlog-rec:", err)
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	writer, err := buildTransport(cfg)
	if err != nil {
		log.Error("failed to build transport", "error", err)
		os.Exit(1)
	}
	defer writer.Close()

	sk, err := sink.New()
	if err != nil {
		log.Error("failed to build sink", "error", err)
		os.Exit(1)
	}
	user := os.Getenv("USER")
	log = logger.WithSession(log, sk.Session(), user)

	hookCfg := hooks.HookConfig{
		Timeout:     cfg.hookTimeout,
		Concurrency: cfg.hookConcurrency,
		StdioFormat: cfg.hookStdioFormat,
	}
	hookMgr := hooks.NewHookManager(hookCfg, log)
	if err := wireHooks(hookMgr, cfg); err != nil {
		log.Error("failed to wire hooks", "error", err)
		os.Exit(1)
	}
	defer hookMgr.Close()

	command := cfg.command
	if len(command) == 0 {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		command = []string{shell}
	}

	src, err := packetsrc.Open(exec.Command(command[0], command[1:]...))
	if err != nil {
		log.Error("failed to start recorded process", "error", err)
		os.Exit(1)
	}

	sigSrc := packetsrc.NewSignalSource(int(os.Stdin.Fd()))
	defer sigSrc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hookMgr.TriggerEvent(ctx, *hooks.NewEvent(hooks.EventSessionStart).WithSessionID(sk.Session()).WithUser(user))
	log.Info("recording session started", "command", strings.Join(command, " "))

	c := chunk.New(int(cfg.chunkSize))
	runRecorder(ctx, src, sigSrc, c, sk, writer, hookMgr, log)

	hookMgr.TriggerEvent(context.Background(), *hooks.NewEvent(hooks.EventSessionEnd).WithSessionID(sk.Session()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = src.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("recorded process exited cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit waiting for recorded process")
	}
}

// buildTransport wires every configured destination into a single
// MultiWriter, so the recorder always writes through one Writer
// regardless of how many destinations are enabled.
func buildTransport(cfg *cliConfig) (*transport.MultiWriter, error) {
	mw := transport.NewMultiWriter(nil)

	if cfg.outFile != "" {
		var fw transport.Writer
		var err error
		if cfg.watchOutDir {
			fw, err = transport.NewWatchedDirWriter(cfg.outFile, nil)
		} else {
			fw, err = transport.NewFileWriter(cfg.outFile, nil)
		}
		if err != nil {
			return nil, err
		}
		if err := mw.Add("file", fw); err != nil {
			return nil, err
		}
	}

	if cfg.azureAccount != "" {
		blob := cfg.azureBlob
		if blob == "" {
			blob = fmt.Sprintf("session-%d.jsonl", time.Now().Unix())
		}
		aw, err := transport.NewAzureBlobWriter(cfg.azureAccount, cfg.azureContainer, blob, nil)
		if err != nil {
			return nil, err
		}
		if err := mw.Add("azure", aw); err != nil {
			return nil, err
		}
	}

	return mw, nil
}

// wireHooks registers one shell or webhook hook per event_type=target
// flag assignment already validated by parseFlags.
func wireHooks(mgr *hooks.HookManager, cfg *cliConfig) error {
	timeout, err := time.ParseDuration(cfg.hookTimeout)
	if err != nil {
		timeout = 30 * time.Second
	}

	for i, assignment := range cfg.hookScripts {
		eventType, path, _ := strings.Cut(assignment, "=")
		h := hooks.NewShellHook(fmt.Sprintf("script-%d", i), path, timeout)
		if err := mgr.RegisterHook(hooks.EventType(eventType), h); err != nil {
			return err
		}
	}

	for i, assignment := range cfg.hookWebhooks {
		eventType, url, _ := strings.Cut(assignment, "=")
		h := hooks.NewWebhookHook(fmt.Sprintf("webhook-%d", i), url, timeout)
		if err := mgr.RegisterHook(hooks.EventType(eventType), h); err != nil {
			return err
		}
	}

	return nil
}

// runRecorder pumps output packets from src and window-resize packets
// from sigSrc into c, flushing and shipping a message through writer
// whenever a packet no longer fits, until src's output stream ends or
// ctx is cancelled.
func runRecorder(
	ctx context.Context,
	src *packetsrc.PTYSource,
	sigSrc *packetsrc.SignalSource,
	c *chunk.Chunk,
	sk *sink.Sink,
	writer transport.Writer,
	hookMgr *hooks.HookManager,
	log *slog.Logger,
) {
	packets := make(chan *packet.Packet, 16)
	errs := make(chan error, 1)

	go func() {
		for {
			pkt, err := src.Read()
			if err != nil {
				errs <- err
				return
			}
			select {
			case packets <- pkt:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if initial, err := sigSrc.Initial(); err == nil {
			select {
			case packets <- initial:
			case <-ctx.Done():
			}
		}
		for {
			pkt, err := sigSrc.Next()
			if err != nil {
				return
			}
			select {
			case packets <- pkt:
			case <-ctx.Done():
				return
			}
		}
	}()

	flushAndShip := func() {
		c.Flush()
		msg := sk.Wrap(c, tstamp.Now())
		if err := writer.Write(ctx, msg); err != nil {
			log.Error("failed to ship message", "error", err)
			hookMgr.TriggerEvent(ctx, *hooks.NewEvent(hooks.EventTransportError).
				WithSessionID(sk.Session()).WithData("error", err.Error()))
		}
		hookMgr.TriggerEvent(ctx, *hooks.NewEvent(hooks.EventChunkFlushed).WithSessionID(sk.Session()))
		c.Empty()
	}

	writePacket := func(pkt *packet.Packet) {
		if pkt.Type == packet.TypeWindow {
			hookMgr.TriggerEvent(ctx, *hooks.NewEvent(hooks.EventWindowResize).
				WithSessionID(sk.Session()).
				WithData("width", pkt.Width).WithData("height", pkt.Height))
		}
		pos := 0
		for {
			if c.Write(pkt, &pos) {
				return
			}
			flushAndShip()
		}
	}

	for {
		select {
		case <-ctx.Done():
			if !c.IsEmpty() {
				flushAndShip()
			}
			return
		case err := <-errs:
			if err.Error() != "EOF" {
				log.Error("recorded process read failed", "error", err)
			}
			if !c.IsEmpty() {
				flushAndShip()
			}
			return
		case pkt := <-packets:
			writePacket(pkt)
		}
	}
}
