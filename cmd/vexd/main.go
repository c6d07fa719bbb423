// Command vexd runs the reliable-UDP session transport as a standalone
// listener, decoding game packets and handing them to a deliverer that
// only logs them — wiring an actual game layer on top is left to an
// importer of internal/server.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teampathfinders/vex/internal/server"
	"github.com/teampathfinders/vex/pkg/logger"
	"github.com/teampathfinders/vex/pkg/raknet"
)

const version = "0.1.0"

func main() {
	logger.Banner("Vex Transport", version)

	cfg := server.DefaultConfig()
	cfg.Metrics = raknet.NewMetrics(nil, nil)

	logger.Info("host: %s", cfg.Host)
	logger.Info("port: %d", cfg.Port)
	logger.Info("max sessions: %d", cfg.MaxSessions)
	logger.Success("configuration loaded")

	srv := server.New(cfg, func(session *raknet.Session, packetID uint32, body []byte) {
		logger.Debug("packet 0x%x (%d bytes) from %s", packetID, len(body), session.RemoteAddr())
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		logger.Fatal("server error: %v", err)
	case sig := <-sigChan:
		logger.Warn("received signal: %v", sig)
		logger.Info("shutting down gracefully...")
		srv.Stop()
		time.Sleep(500 * time.Millisecond)
		logger.Success("server stopped")
	}
}
