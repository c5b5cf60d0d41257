// Package app wires the process together: configuration, logging, the hub,
// both transports, and the periodic tasks.
package app

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gungame/server"
	"gungame/server/internal/telemetry"
	"gungame/server/internal/transport"
	"gungame/server/internal/transport/udp"
	"gungame/server/internal/transport/ws"
	"gungame/server/logging"
	"gungame/server/logging/sinks"
	"gungame/server/weapons"
)

// Run builds the server from the environment and blocks until the context
// is cancelled or a component fails.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	stdLogger := log.New(os.Stdout, "", log.LstdFlags)
	logger := telemetry.WrapLogger(stdLogger)
	instanceID := uuid.NewString()

	logCfg := logging.DefaultConfig()
	logCfg.BufferSize = cfg.LogBufferSize
	logCfg.MinimumSeverity = parseSeverity(cfg.LogSeverity)
	logCfg.Fields = map[string]any{"instance": instanceID}
	router, err := logging.NewRouter(logCfg, logging.SystemClock{}, stdLogger, map[string]logging.Sink{
		"console": sinks.NewConsoleSink(os.Stdout, logCfg.Console),
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		router.Close(closeCtx)
	}()

	db, err := loadWeapons(cfg.WeaponsPath)
	if err != nil {
		return err
	}

	counters := &telemetry.Counters{}
	hub := server.NewHub(server.HubConfig{
		Weapons:   db,
		Logger:    logger,
		Publisher: router,
	})

	if cfg.BootstrapLobby != "" {
		info, err := hub.CreateLobby(cfg.BootstrapLobby, cfg.BootstrapScene, cfg.BootstrapCapacity)
		if err != nil {
			return err
		}
		logger.Printf("bootstrap lobby %s ready (scene=%s)", info.Code, info.Scene)
		if cfg.SpawnDummy {
			if err := hub.SpawnDummy(info.Code); err != nil {
				return err
			}
		}
	}

	udpConn, err := net.ListenPacket("udp", cfg.UDPAddr)
	if err != nil {
		return err
	}
	udpPort, err := cfg.UDPPort()
	if err != nil {
		udpConn.Close()
		return err
	}

	sendRouter := transport.NewRouter(transport.SenderFunc(udpConn.WriteTo))
	bc := transport.NewBroadcaster(sendRouter, logger, counters)
	udpHandler := udp.NewHandler(hub, bc, logger, counters)
	gateway := ws.NewGateway(udpHandler.Dispatch, logger)
	sendRouter.Register("ws", gateway)

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: transport.NewHTTPHandler(hub, transport.HTTPHandlerConfig{
			ServerIP:   cfg.AdvertiseIP,
			UDPPort:    udpPort,
			InstanceID: instanceID,
			Logger:     logger,
			Counters:   counters,
			WSHandler:  gateway,
		}),
	}

	logger.Printf("instance %s listening: http=%s udp=%s", instanceID, cfg.HTTPAddr, cfg.UDPAddr)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		err := udpHandler.Serve(ctx, udpConn)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error { return runSweep(ctx, hub, bc, cfg) })
	g.Go(func() error { return runReloadTicks(ctx, hub, bc, cfg.ReloadTickInterval) })
	g.Go(func() error { return runDummyBots(ctx, hub, bc, cfg.DummyTickInterval) })
	g.Go(func() error { return runStateSync(ctx, hub, bc, cfg.StateSyncInterval) })

	return g.Wait()
}

func loadWeapons(path string) (*weapons.Database, error) {
	if path == "" {
		return weapons.Defaults(), nil
	}
	return weapons.Load(path)
}

func parseSeverity(name string) logging.Severity {
	switch name {
	case "debug":
		return logging.SeverityDebug
	case "warn":
		return logging.SeverityWarn
	case "error":
		return logging.SeverityError
	default:
		return logging.SeverityInfo
	}
}
