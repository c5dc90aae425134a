// Command knhk-server runs the full engine: the μ-kernel pipeline driven
// by a Beat Scheduler, its warm path, durable persistence, and every
// control-plane adapter (REST, gRPC, WebSocket stream, Socket.IO notify).
//
// Mirrors the shape of the teacher's cmd/server: wire every microservice's
// constructor up front, then start listening.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/knhk/core/internal/config"
	grpccontrol "github.com/knhk/core/internal/control/grpc"
	"github.com/knhk/core/internal/control/grpc/pb"
	"github.com/knhk/core/internal/control/notify"
	"github.com/knhk/core/internal/control/rest"
	"github.com/knhk/core/internal/control/stream"
	"github.com/knhk/core/internal/fiber"
	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/muengine"
	"github.com/knhk/core/internal/persist"
	"github.com/knhk/core/internal/pipeline"
	"github.com/knhk/core/internal/receipt"
	"github.com/knhk/core/internal/ring"
	"github.com/knhk/core/internal/scheduler"
	"github.com/knhk/core/internal/sink"
	"github.com/knhk/core/internal/source"
	"github.com/knhk/core/internal/telemetry"
	"github.com/knhk/core/internal/warmpath"
)

func main() {
	cfg := config.Get()
	metrics := telemetry.New()

	registry := hookregistry.New()
	chain := receipt.NewChain()

	var specStore *persist.PGSpecStore
	if cfg.Persist.PostgresURL != "" {
		store, err := persist.NewPGSpecStore(cfg.Persist.PostgresURL)
		if err != nil {
			slog.Warn("spec store disabled: failed to connect to postgres", "error", err)
		} else {
			specStore = store
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := specStore.EnsureSchema(ctx); err != nil {
				slog.Warn("spec store schema migration failed", "error", err)
			}
			cancel()
			if tuples, err := specStore.Load(context.Background()); err != nil {
				slog.Warn("spec store load failed", "error", err)
			} else if _, err := registry.RegisterBag(tuples); err != nil {
				slog.Warn("restoring persisted spec bag failed", "error", err)
			} else {
				slog.Info("restored spec bag from postgres", "tuples", len(tuples))
			}
		}
	}

	var chainStore *persist.SpannerChain
	if cfg.Persist.Spanner.ProjectID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		store, err := persist.NewSpannerChain(ctx, cfg.Persist.Spanner.ProjectID, cfg.Persist.Spanner.InstanceID, cfg.Persist.Spanner.DatabaseID)
		cancel()
		if err != nil {
			slog.Warn("chain persistence disabled: failed to connect to spanner", "error", err)
		} else {
			chainStore = store
			if head, found, err := chainStore.Load(context.Background(), "default"); err == nil && found {
				chain.Restore(head)
			}
		}
	}

	notifier := notify.New()
	go func() {
		if err := notifier.Run(); err != nil {
			slog.Error("notify server stopped", "error", err)
		}
	}()

	var overflow warmpath.Overflow
	if cfg.WarmPath.CloudTasksEnabled {
		queuePath := fmt.Sprintf("projects/%s/locations/%s/queues/%s",
			cfg.WarmPath.CloudTasksProject, cfg.WarmPath.CloudTasksLocation, cfg.WarmPath.CloudTasksQueue)
		ct, err := warmpath.NewCloudTasksOverflow(context.Background(), queuePath, cfg.WarmPath.TargetURL)
		if err != nil {
			slog.Warn("cloud tasks overflow disabled", "error", err)
		} else {
			overflow = ct
		}
	}

	pool := warmpath.NewPool(cfg.WarmPath.PoolCapacity, func(ctx context.Context, w *warmpath.Worker, rec fiber.ParkedRecord) error {
		notifier.NotifyParked(rec)
		metrics.RecordParked(rec.Reason)
		return nil
	}, overflow)

	numShards := cfg.Pipeline.NumShards
	fibers := make([]*fiber.Fiber, numShards)
	shards := make([]pipeline.Shard, numShards)
	var tick uint64
	meter := func() uint64 { return tick }

	for i := 0; i < numShards; i++ {
		delta := ring.New(cfg.Pipeline.RingCapacity)
		asserted := ring.New(cfg.Pipeline.RingCapacity)
		shards[i] = pipeline.Shard{Delta: delta, Asserted: asserted}
		fibers[i] = fiber.New(uint32(i), delta, asserted, registry, muengine.New(), pool, meter)
	}

	sched := scheduler.New(fibers, time.Duration(cfg.Pipeline.BeatIntervalMs)*time.Millisecond)

	hub := sink.NewWebSocketBroadcaster()
	sinks := []sink.Sink{hub}
	if cfg.Supabase.URL != "" {
		if s, err := sink.NewSupabaseSink(cfg.Supabase.Table); err != nil {
			slog.Warn("supabase sink disabled", "error", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	if cfg.PubSub.Enabled {
		if s, err := sink.NewPubSubSink(context.Background(), cfg.PubSub.ProjectID, cfg.PubSub.TopicID); err != nil {
			slog.Warn("pubsub sink disabled", "error", err)
		} else {
			sinks = append(sinks, s)
		}
	}

	var sources []source.Source
	if cfg.PubSub.Enabled {
		if src, err := source.NewPubSubSource(context.Background(), cfg.PubSub.ProjectID, cfg.PubSub.TopicID+"-sub"); err != nil {
			slog.Warn("pubsub source disabled", "error", err)
		} else {
			sources = append(sources, src)
		}
	}

	pipe := pipeline.New(pipeline.Config{
		Sources:     sources,
		Shards:      shards,
		Scheduler:   sched,
		Sinks:       sinks,
		Chain:       chain,
		IngressTick: meter,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Start(ctx)

	go notifier.Watch(sched.Receipts(), ctx.Done())

	restServer := rest.New(registry, pipe, chain, nil)
	router := restServer.Router()
	stream.Mount(router, "/stream", hub)
	router.Handle("/socket.io/", notifier.Handler())
	router.Handle("/metrics", promhttp.Handler())

	grpcServer := grpc.NewServer()
	pb.RegisterCoreControlServer(grpcServer, grpccontrol.New(registry, pipe, sched, chain, nil, 5*time.Second))
	grpcListener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		slog.Error("grpc listener failed", "error", err)
		os.Exit(1)
	}
	go func() {
		slog.Info("control plane gRPC listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(grpcListener); err != nil {
			slog.Error("grpc server stopped", "error", err)
		}
	}()

	httpServer := &http.Server{Addr: cfg.Server.RESTAddr, Handler: router}
	go func() {
		slog.Info("control plane REST listening", "addr", cfg.Server.RESTAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("rest server stopped", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	sched.Stop()
	cancel()
	notifier.Close()
	pipe.Close()
	if chainStore != nil {
		chainStore.Save(shutdownCtx, "default", chain.Head())
	}
	if specStore != nil {
		specStore.Close()
	}
}
