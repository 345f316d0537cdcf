package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/crosstalk-dev/crosstalk/pkg/config"
	"github.com/crosstalk-dev/crosstalk/pkg/routing"
	"github.com/crosstalk-dev/crosstalk/pkg/server"
	"github.com/crosstalk-dev/crosstalk/pkg/session"
	"github.com/crosstalk-dev/crosstalk/pkg/telemetry"
	"github.com/crosstalk-dev/crosstalk/pkg/transport"
	"github.com/sirupsen/logrus"
)

func main() {
	configFilePath := flag.String("config", "config.yaml", "configuration file path")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig(*configFilePath)
	if err != nil {
		logrus.WithError(err).Fatal("could not load config")
		return
	}

	switch cfg.LogLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	case "panic":
		logrus.SetLevel(logrus.PanicLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled() {
		provider, err := telemetry.Setup(ctx, cfg.Telemetry)
		if err != nil {
			logrus.WithError(err).Fatal("could not set up telemetry")
			return
		}
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				logrus.WithError(err).Warn("telemetry shutdown failed")
			}
		}()
	}

	sessions := session.StartManager(cfg.Calls.SessionConfig())
	defer sessions.Stop()

	router := routing.NewRouter(sessions)
	httpServer := server.New(cfg.Port, sessions, transport.Handler(router))

	if err := httpServer.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}
