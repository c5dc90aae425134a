// Command knhk-probe is a standalone test harness: it attaches the kernel
// eBPF ring buffer (or runs in mock mode if no BPF object is loaded),
// drives one shard's worth of pipeline by hand, and streams cycle outcomes
// to a Socket.IO console — mirroring the teacher's cmd/probe harness, which
// wires the same eBPF ring buffer reader and socketio.Server together for
// manual exercising of the pipeline outside the full server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cilium/ebpf/ringbuf"

	"github.com/knhk/core/internal/config"
	"github.com/knhk/core/internal/control/notify"
	"github.com/knhk/core/internal/fiber"
	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/muengine"
	"github.com/knhk/core/internal/pattern"
	"github.com/knhk/core/internal/pipeline"
	"github.com/knhk/core/internal/receipt"
	"github.com/knhk/core/internal/ring"
	"github.com/knhk/core/internal/scheduler"
	"github.com/knhk/core/internal/sink"
	"github.com/knhk/core/internal/source"
	"github.com/knhk/core/internal/triple"
)

func main() {
	slog.Info("knhk-probe: kernel-tap test harness")

	cfg := config.Get()

	registry := hookregistry.New()
	// Real deployments register their spec bag via the REST/gRPC control
	// plane before traffic arrives; this harness registers one Sequence
	// hook so a manually driven kernel event has somewhere to dispatch.
	probePredicate := triple.Fingerprint("urn:predicate:probe")
	if _, err := registry.Register(probePredicate, pattern.Sequence, nil, nil, nil, hookregistry.RegisterOptions{}); err != nil {
		slog.Warn("probe hook registration failed", "error", err)
	}

	delta := ring.New(cfg.Pipeline.RingCapacity)
	asserted := ring.New(cfg.Pipeline.RingCapacity)
	var tick uint64
	f := fiber.New(0, delta, asserted, registry, muengine.New(), noopWarm{}, func() uint64 { return tick })

	sched := scheduler.New([]*fiber.Fiber{f}, time.Duration(cfg.Pipeline.BeatIntervalMs)*time.Millisecond)

	notifier := notify.New()
	go func() {
		if err := notifier.Run(); err != nil {
			slog.Error("notify server stopped", "error", err)
		}
	}()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/socket.io/", notifier.Handler())
		if err := http.ListenAndServe(cfg.Server.NotifyAddr, mux); err != nil {
			slog.Error("notify listener stopped", "error", err)
		}
	}()

	// No BPF object is loaded by this harness (attaching one requires a
	// compiled .bpf.o and root privileges); KernelTap degrades to mock
	// mode when its reader is nil, mirroring the teacher's ringbuf.Reader
	// fallback.
	var reader *ringbuf.Reader
	tap, err := source.NewKernelTap(reader, "probe")
	if err != nil {
		slog.Error("kernel tap init failed", "error", err)
		os.Exit(1)
	}

	memSink := sink.NewMemorySink()
	pipe := pipeline.New(pipeline.Config{
		Sources:     []source.Source{tap},
		Shards:      []pipeline.Shard{{Delta: delta, Asserted: asserted}},
		Scheduler:   sched,
		Sinks:       []sink.Sink{memSink},
		Chain:       receipt.NewChain(),
		IngressTick: func() uint64 { return tick },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Start(ctx)
	go notifier.Watch(sched.Receipts(), ctx.Done())

	if err := pipe.RunIngest(ctx, 1); err != nil {
		slog.Error("ingest failed", "error", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	slog.Info("shutting down probe", "emitted", memSink.Count())
	sched.Stop()
	notifier.Close()
	pipe.Close()
}

type noopWarm struct{}

func (noopWarm) Park(fiber.ParkedRecord) {}
