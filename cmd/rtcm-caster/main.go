// Command rtcm-caster configures a Quectel LC29H-class GNSS receiver as
// an RTK base station and broadcasts its RTCM3 corrections to NTRIP
// clients.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/fossettahq/rtcm-caster/config"
	"github.com/fossettahq/rtcm-caster/hardware/lc29h"
	"github.com/fossettahq/rtcm-caster/pkg/caster"
	"github.com/fossettahq/rtcm-caster/pkg/rtcm3"
	"github.com/fossettahq/rtcm-caster/pkg/serialreader"
)

const (
	heartbeatInterval = 10 * time.Second
	shutdownGrace     = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (required)")
	listenAddr := flag.String("listen", "", "override the configured listen address")
	metricsAddr := flag.String("metrics-addr", "", "override the configured metrics address (empty disables /metrics)")
	serialPort := flag.String("serial-port", "", "override the configured serial port")
	baud := flag.Int("baud", 0, "override the configured baud rate")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatalf("invalid log level: %v", err)
	}
	logger.SetLevel(level)

	if *configPath == "" {
		logger.Fatal("-config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("loading config: %v", err)
	}
	applyOverrides(&cfg, *listenAddr, *metricsAddr, *serialPort, *baud)

	port, err := serial.Open(cfg.Serial.Port, &serial.Mode{BaudRate: cfg.Serial.Baud})
	if err != nil {
		logger.Fatalf("opening serial port %s: %v", cfg.Serial.Port, err)
	}
	defer port.Close()

	// A bounded read timeout lets the reader's Run loop notice
	// cancellation promptly instead of blocking indefinitely on Read.
	if err := port.SetReadTimeout(time.Second); err != nil {
		logger.WithError(err).Warn("failed to set serial read timeout")
	}

	device := lc29h.NewDevice(port, logger)
	if err := device.ConfigureBaseMode(cfg.BasePosition.Lat, cfg.BasePosition.Lon, cfg.BasePosition.Alt, cfg.RTCMMessages); err != nil {
		logger.WithError(err).Warn("receiver configuration failed; continuing in case it is already configured")
	}

	mounts := buildMountpoints(cfg)
	registry := caster.NewRegistry(logger)
	promReg := prometheus.NewRegistry()
	stats := caster.NewStats(registry, promReg)

	session := caster.NewSession(mounts, caster.Credentials(cfg.Credentials), registry, caster.CasterInfo{
		Host:       cfg.CasterHost,
		Port:       cfg.CasterPort,
		Product:    cfg.CasterProduct,
		Name:       cfg.CasterName,
		Identifier: cfg.CasterName,
		Country:    cfg.CasterCountry,
	}, logger)

	listener := caster.NewListener(cfg.ListenAddr, session, registry, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := serialreader.New(port, func(frame rtcm3.Frame) {
		n := registry.Broadcast(frame.Data)
		stats.RecordFrame(len(frame.Data))
		logger.WithFields(logrus.Fields{
			"message_type": frame.MessageType,
			"name":         rtcm3.MessageTypeName(frame.MessageType),
			"delivered_to": n,
		}).Debug("broadcast RTCM3 frame")
	}, logger)

	go func() {
		if err := reader.Run(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("serial reader stopped")
		}
	}()

	go stats.RunHeartbeat(ctx, heartbeatInterval, logger)

	listenerErrCh := make(chan error, 1)
	go func() { listenerErrCh <- listener.ListenAndServe() }()

	var metricsServer *caster.MetricsServer
	if cfg.MetricsAddr != "" {
		metricsServer = caster.NewMetricsServer(cfg.MetricsAddr, promReg)
		go func() {
			if err := metricsServer.ListenAndServe(logger); err != nil {
				logger.WithError(err).Error("metrics server failed")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case err := <-listenerErrCh:
		if err != nil {
			logger.WithError(err).Error("listener exited unexpectedly")
		}
	}

	cancel()
	reader.Stop()
	listener.Stop(shutdownGrace)

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		metricsServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	logger.Info("rtcm-caster stopped")
}

func applyOverrides(cfg *config.Config, listenAddr, metricsAddr, serialPort string, baud int) {
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if serialPort != "" {
		cfg.Serial.Port = serialPort
	}
	if baud > 0 {
		cfg.Serial.Baud = baud
	}
}

func buildMountpoints(cfg config.Config) []caster.Mountpoint {
	mounts := make([]caster.Mountpoint, 0, len(cfg.Mountpoints))
	for _, m := range cfg.Mountpoints {
		mp := caster.DefaultMountpoint(m.Name)
		if m.Identifier != "" {
			mp.Identifier = m.Identifier
		}
		mp.Lat = m.Lat
		mp.Lon = m.Lon
		mounts = append(mounts, mp)
	}
	return mounts
}
