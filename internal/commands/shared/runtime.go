// Copyright 2025 Tom Barlow
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

package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/trailguide/internal/config"
	"github.com/tombee/trailguide/internal/log"
	"github.com/tombee/trailguide/internal/report"
	"github.com/tombee/trailguide/internal/session"
)

const shutdownTimeout = 10 * time.Second

// sessionOptions are merged into every session a command opens. Tests use
// SetSessionOptionsForTest to inject a scripted provider and span recorder.
var sessionOptions session.Options

// SetSessionOptionsForTest replaces the options used by Start.
func SetSessionOptionsForTest(opts session.Options) {
	sessionOptions = opts
}

// Runtime is everything a command needs for one run.
type Runtime struct {
	Config  *config.Config
	Session *session.Session
	Logger  *slog.Logger

	metrics *http.Server
}

// Start loads configuration, builds the logger, opens the session and
// starts the metrics listener when one is requested. Callers must Close the
// runtime to flush telemetry.
func Start(ctx context.Context, cmd *cobra.Command) (*Runtime, error) {
	cfg, err := config.Load(GetConfigPath(), config.LoadOptions{CIMode: GetCIMode()})
	if err != nil {
		return nil, NewExecutionError("loading configuration", err)
	}
	if p := GetProvider(); p != "" {
		cfg.LLM.Provider = p
	}

	logger := newLogger(cmd, cfg)
	slog.SetDefault(logger)

	opts := sessionOptions
	v, _, _ := GetVersion()
	opts.Version = v
	opts.Logger = logger
	sess, err := session.Open(ctx, cfg, opts)
	if err != nil {
		return nil, NewExecutionError("opening session", err)
	}

	rt := &Runtime{Config: cfg, Session: sess, Logger: logger.With(log.SessionIDKey, sess.ID())}

	addr := GetMetricsAddr()
	if addr == "" {
		addr = cfg.Telemetry.MetricsAddr
	}
	if addr != "" {
		if err := rt.serveMetrics(addr); err != nil {
			rt.Close()
			return nil, NewExecutionError("starting metrics listener", err)
		}
	}
	return rt, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	lc := log.FromEnv()
	lc.Level = cfg.Log.Level
	lc.Format = log.Format(cfg.Log.Format)
	lc.Output = cmd.ErrOrStderr()
	switch {
	case GetVerbose():
		lc.Level = "debug"
	case GetQuiet():
		lc.Level = "warn"
	}
	return log.New(lc)
}

func (r *Runtime) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Session.MetricsHandler())
	r.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := r.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Logger.Warn("metrics listener stopped", log.Error(err))
		}
	}()
	r.Logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

// Close stops the metrics listener and flushes telemetry. Errors are logged.
func (r *Runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if r.metrics != nil {
		if err := r.metrics.Shutdown(ctx); err != nil {
			r.Logger.Warn("stopping metrics listener", log.Error(err))
		}
	}
	if err := r.Session.Shutdown(ctx); err != nil {
		r.Logger.Warn("flushing telemetry", log.Error(err))
	}
}

// Finish writes results to path, renders them to the command output and
// maps a failed run to an exit error. The results file is written whether
// or not the run succeeded.
func (r *Runtime) Finish(cmd *cobra.Command, path string, results report.Results) error {
	writeErr := report.WriteFile(path, results)

	out := cmd.OutOrStdout()
	if GetJSON() || !GetQuiet() {
		if err := report.Render(out, results, report.RenderOptions{JSON: GetJSON(), Color: ColorEnabled()}); err != nil {
			r.Logger.Warn("rendering results", log.Error(err))
		}
	}
	if !GetJSON() && !GetQuiet() {
		if writeErr == nil {
			fmt.Fprintln(out, RenderOK("Results saved to "+path))
		}
		fmt.Fprintln(out, RenderLabel("Session ID: ")+r.Session.ID())
	}

	if writeErr != nil {
		return NewExecutionError("writing results", writeErr)
	}
	if !results.Succeeded() {
		return NewExecutionError(results.LabName()+" failed", results.Err())
	}
	return nil
}
