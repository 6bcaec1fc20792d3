package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/machbase/neo-polarmap/mods"
	"github.com/machbase/neo-polarmap/mods/logging"
	"github.com/machbase/neo-polarmap/mods/server"
)

type ServeCmd struct {
	Listen   []string `name:"listen" short:"l" help:"listen address, tcp://host:port or unix://path, overrides the config"`
	Debug    bool     `name:"debug" help:"log every http request"`
	LogLevel string   `name:"log-level" help:"default log level (TRACE, DEBUG, INFO, WARN, ERROR), overrides the config"`
}

func (c *ServeCmd) Run(g *Globals, out io.Writer) error {
	cfg, reg, err := g.load()
	if err != nil {
		return err
	}
	if c.LogLevel != "" {
		if _, ok := logging.ParseLogLevelP(c.LogLevel); !ok {
			return fmt.Errorf("unknown log level %q", c.LogLevel)
		}
		cfg.Logging.DefaultLevel = c.LogLevel
	}
	closer := logging.Configure(&cfg.Logging)
	defer closer.Close()

	log := logging.GetLog("polarmap")
	log.Infof("polarmap %s", mods.VersionString())

	if len(c.Listen) > 0 {
		cfg.Server.Listen = ""
	}
	opts := []server.Option{
		server.WithConfig(cfg),
		server.WithListenAddress(c.Listen...),
	}
	if c.Debug {
		opts = append(opts, server.WithDebugMode(true, 0))
	}
	svr, err := server.New(reg, opts...)
	if err != nil {
		return err
	}
	if err := svr.Start(); err != nil {
		svr.Stop()
		return err
	}
	fmt.Fprintf(out, "polar map server at %s\n", svr.AdvertiseAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	svr.Stop()
	log.Info("shutdown")
	return nil
}
