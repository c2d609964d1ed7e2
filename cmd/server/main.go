package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"quasar/api/grpcapi"
	"quasar/api/httpapi"
	"quasar/config"
	"quasar/domain/orderbook"
	"quasar/gateway"
	"quasar/infra/kafka"
	"quasar/infra/outbox"
	"quasar/infra/tradelog"
	"quasar/jobs/broadcaster"
	"quasar/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	// ---------------- Trade journal ----------------

	journal, err := tradelog.Open(tradelog.Config{
		Dir:             cfg.Storage.TradeLogDir,
		SegmentSize:     cfg.Storage.SegmentSize,
		SegmentDuration: cfg.Storage.SegmentDuration,
	})
	if err != nil {
		log.Fatalf("trade journal init failed: %v", err)
	}
	defer journal.Close()

	// ---------------- Outbox ----------------

	staging, err := outbox.Open(cfg.Storage.OutboxDir)
	if err != nil {
		log.Fatalf("outbox init failed: %v", err)
	}
	defer staging.Close()

	// ---------------- Engine ----------------

	engine := service.NewEngine()
	publisher := service.NewTradePublisher(journal, staging)
	hub := httpapi.NewHub()
	engine.SetTradeObserver(func(t orderbook.Trade) {
		publisher.Publish(t)
		hub.Broadcast(t)
	})

	// ---------------- Broadcaster ----------------

	drain, err := broadcaster.New(staging, cfg.Kafka.Brokers, cfg.Kafka.TradesTopic, cfg.Kafka.DrainInterval)
	if err != nil {
		log.Fatalf("broadcaster init failed: %v", err)
	}
	defer drain.Close()
	drain.Start(ctx)

	// ---------------- Order feed ----------------

	feed := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic)
	defer feed.Close()

	// ---------------- Gateway ----------------

	gw := gateway.New(gateway.Config{
		Addr:           cfg.Gateway.Addr,
		MaxMessageSize: cfg.Gateway.MaxMessageSize,
		TickScale:      cfg.Engine.TickScale,
	}, engine, feed)
	go func() {
		if err := gw.Serve(ctx); err != nil {
			log.Fatalf("gateway failed: %v", err)
		}
	}()

	// ---------------- HTTP API ----------------

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: httpapi.NewServer(engine, hub, cfg.Engine.DefaultDepth).Router(),
	}
	go func() {
		log.Printf("[http] listening on %s", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	// ---------------- gRPC API ----------------

	grpcLis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Fatalf("grpc listen failed: %v", err)
	}
	grpcSrv := grpc.NewServer(grpc.ForceServerCodec(grpcapi.Codec{}))
	grpcapi.NewServer(engine).Register(grpcSrv)
	go func() {
		log.Printf("[grpc] listening on %s", cfg.GRPC.Addr)
		if err := grpcSrv.Serve(grpcLis); err != nil {
			log.Fatalf("grpc server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[server] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()
	gw.Wait()
	_ = journal.Sync()
	log.Println("[server] bye")
}
