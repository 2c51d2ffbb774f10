// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Command sageql runs the query engine as a standalone HTTP server: a
// thin wire surface over internal/wiring.Engine, following the
// teacher's pattern of one small main that binds flags, builds the
// component graph, and serves.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/sageql/sageql/internal/config"
	"github.com/sageql/sageql/internal/expr"
	"github.com/sageql/sageql/internal/session"
	"github.com/sageql/sageql/internal/storage/memstore"
	"github.com/sageql/sageql/internal/storage/pgstore"
	"github.com/sageql/sageql/internal/types"
	"github.com/sageql/sageql/internal/wiresurface"
	"github.com/sageql/sageql/internal/wiring"
)

// serverConfig is the process-level configuration: where to bind, how
// verbosely to log, which graphs to serve and how, and (optionally) a
// Postgres DSN to back them durably instead of in-memory.
type serverConfig struct {
	BindAddr    string
	LogLevel    string
	PostgresDSN string
	ControlCap  int
	GraphNames  []string
	graphs      []*config.Graph
}

func (c *serverConfig) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&c.BindAddr, "bindAddr", ":26259", "the network address to bind to")
	flags.StringVar(&c.LogLevel, "logLevel", "info", "the logging level: trace, debug, info, warn, error")
	flags.StringVar(&c.PostgresDSN, "postgresDSN", "", "if set, store quads in Postgres at this DSN rather than in-memory")
	flags.IntVar(&c.ControlCap, "controlTupleCap", 10_000, "per-request cap on buffered closure control tuples before too_many_paths aborts")
	flags.StringSliceVar(&c.GraphNames, "graph", []string{"default"}, "named graphs to serve, each with spec-default configuration")
}

func (c *serverConfig) Preflight() error {
	if len(c.GraphNames) == 0 {
		return errors.New("at least one graph must be configured")
	}
	c.graphs = make([]*config.Graph, len(c.GraphNames))
	for i, name := range c.GraphNames {
		c.graphs[i] = config.Default(name)
		if err := c.graphs[i].Preflight(); err != nil {
			return errors.Wrapf(err, "graph %q", name)
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("sageql exited with an error")
	}
}

func run() error {
	cfg := &serverConfig{}
	flags := pflag.NewFlagSet("sageql", pflag.ExitOnError)
	cfg.Bind(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		return errors.Wrap(err, "parsing flags")
	}
	if err := cfg.Preflight(); err != nil {
		return errors.Wrap(err, "validating configuration")
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "parsing logLevel")
	}
	log.SetLevel(level)
	log.SetFormatter(&log.JSONFormatter{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter, closeAdapter, err := buildAdapter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAdapter()

	registry := config.NewRegistry(cfg.graphs...)
	engine := wiring.NewEngine(
		adapter,
		registry,
		expr.NewRegistry(),
		session.NewManager(session.NewMemStore()),
		cfg.ControlCap,
		wiring.UnimplementedQueryParser,
		wiring.UnimplementedUpdateParser,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/query", handleEngine(engine.Query))
	mux.HandleFunc("/update", handleEngine(engine.Update))
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("error shutting down HTTP server")
		}
	}()

	log.WithField("addr", cfg.BindAddr).Info("sageql listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "serving HTTP")
	}
	return nil
}

// buildAdapter constructs the C1 storage adapter: a durable pgstore
// backend when postgresDSN is configured, otherwise the in-memory
// reference adapter (suitable for tests and small deployments).
func buildAdapter(ctx context.Context, cfg *serverConfig) (types.StorageAdapter, func(), error) {
	names := make([]types.Term, len(cfg.graphs))
	for i, g := range cfg.graphs {
		names[i] = types.Term(g.Name)
	}

	if cfg.PostgresDSN == "" {
		return memstore.New(names...), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connecting to Postgres")
	}
	return pgstore.New(pool, names...), pool.Close, nil
}

// handleEngine adapts an Engine method to net/http, decoding a
// wiresurface.Request from the body and encoding the wiresurface.Response
// back as JSON — the thinnest possible transport binding, matching
// spec.md §6's "independent of transport" framing.
func handleEngine(fn func(context.Context, wiresurface.Request) (wiresurface.Response, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req wiresurface.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		resp, err := fn(r.Context(), req)
		if err != nil {
			log.WithError(err).WithField("path", r.URL.Path).Warn("request failed")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.WithError(err).Error("encoding response")
		}
	}
}
