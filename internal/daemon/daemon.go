// Package daemon runs the long-lived emotitle process: it polls the
// multiplexer topology, feeds the state engine, issues the renames it
// produces and serves decoration requests on a unix socket.
//
// All state mutation happens on the Run goroutine. Socket handlers hand
// requests over a channel and wait for the reply.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"pkt.systems/pslog"

	"github.com/timvw/emotitle/internal/command"
	"github.com/timvw/emotitle/internal/model"
	"github.com/timvw/emotitle/internal/mux"
	telem "github.com/timvw/emotitle/internal/otel"
	"github.com/timvw/emotitle/internal/state"
)

var tracer = otel.Tracer("emotitle")

// Options configures a Daemon.
type Options struct {
	Mux          mux.Multiplexer
	SocketPath   string
	PollInterval time.Duration
	EventHistory int
	Metrics      *telem.Metrics
	Logger       pslog.Logger
}

type call struct {
	req   Request
	reply chan Response
}

// Daemon owns the engine state for one multiplexer session.
type Daemon struct {
	mux      mux.Multiplexer
	state    *state.State
	socket   string
	interval time.Duration
	metrics  *telem.Metrics
	log      pslog.Logger

	calls     chan call
	intervals chan time.Duration
}

// New creates a daemon. Run starts it.
func New(opts Options) (*Daemon, error) {
	if opts.Mux == nil {
		return nil, fmt.Errorf("multiplexer is required")
	}
	if opts.SocketPath == "" {
		return nil, fmt.Errorf("socket path is required")
	}
	if opts.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", opts.PollInterval)
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	logger = logger.With("mux", opts.Mux.Name())
	return &Daemon{
		mux:       opts.Mux,
		state:     state.New(opts.EventHistory, logger),
		socket:    opts.SocketPath,
		interval:  opts.PollInterval,
		metrics:   opts.Metrics,
		log:       logger,
		calls:     make(chan call),
		intervals: make(chan time.Duration, 1),
	}, nil
}

// SetPollInterval changes the polling cadence of a running daemon.
// Non-positive values are ignored.
func (d *Daemon) SetPollInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	select {
	case d.intervals <- interval:
	default:
		// A reload is already pending; replace it with the newest value.
		select {
		case <-d.intervals:
		default:
		}
		select {
		case d.intervals <- interval:
		default:
		}
	}
}

// Run claims the pidfile, serves the socket and polls until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	pidPath := PidPath(d.socket)
	if err := claimPidfile(pidPath); err != nil {
		return err
	}
	defer releasePidfile(pidPath)

	srv := NewServer(d.socket, d.submit, d.log)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	d.log.Info("daemon started", "socket", d.socket, "interval", d.interval.String())

	d.tick(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("daemon stopped", "pending", d.state.Pending())
			return nil
		case <-ticker.C:
			d.tick(ctx)
		case c := <-d.calls:
			c.reply <- d.handle(ctx, c.req)
		case iv := <-d.intervals:
			if iv != d.interval {
				d.log.Info("poll interval changed", "from", d.interval.String(), "to", iv.String())
				d.interval = iv
				ticker.Reset(iv)
			}
		}
	}
}

// submit runs on server goroutines and waits for the Run loop to answer.
func (d *Daemon) submit(ctx context.Context, req Request) Response {
	c := call{req: req, reply: make(chan Response, 1)}
	select {
	case d.calls <- c:
	case <-ctx.Done():
		return Response{ID: req.ID, Output: "daemon shutting down"}
	}
	select {
	case resp := <-c.reply:
		return resp
	case <-ctx.Done():
		return Response{ID: req.ID, Output: "daemon shutting down"}
	}
}

// tick ingests one topology snapshot and issues the restores it produced.
func (d *Daemon) tick(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "poll")
	defer span.End()

	snap, err := d.mux.Snapshot(ctx)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "snapshot"))
		d.log.Warn("snapshot failed", "err", err)
		return
	}
	span.SetAttributes(
		attribute.Int("tabs", len(snap.Tabs)),
		attribute.Int("panes", paneCount(snap.Panes)),
	)

	d.state.UpdatePanes(snap.Panes)
	d.metrics.RecordSnapshot(ctx, "panes")
	d.state.UpdateTabs(snap.Tabs)
	d.metrics.RecordSnapshot(ctx, "tabs")

	d.flush(ctx)
}

// flush issues every restore that resolves now.
func (d *Daemon) flush(ctx context.Context) {
	for _, r := range d.state.Drain() {
		if err := d.issue(ctx, r); err != nil {
			d.log.Warn("restore failed, retrying next poll", "rename", r.String(), "err", err)
			d.state.Requeue(r)
			d.metrics.RecordRestoreFailure(ctx, renameTarget(r))
			continue
		}
		d.metrics.RecordRestore(ctx, renameTarget(r))
		d.log.Debug("title restored", "rename", r.String())
	}
	d.metrics.RecordDeferred(ctx, d.state.Pending())
}

// handle answers one socket request.
func (d *Daemon) handle(ctx context.Context, req Request) Response {
	resp := Response{ID: req.ID}

	if command.IsInfo(req.Args) {
		data, err := json.Marshal(d.state.Info())
		if err != nil {
			resp.Output = fmt.Sprintf("encode info: %v", err)
			return resp
		}
		resp.OK = true
		resp.Output = string(data)
		return resp
	}

	ctx, span := tracer.Start(ctx, "apply", trace.WithAttributes(
		attribute.String("request.id", req.ID),
	))
	defer span.End()

	cmd, err := command.Parse(req.Args)
	if err != nil {
		return d.fail(ctx, span, resp, err)
	}
	span.SetAttributes(
		attribute.String("target", string(cmd.Target.Kind)),
		attribute.String("mode", cmd.Mode.String()),
	)

	rename, err := d.state.Apply(cmd)
	if err != nil {
		return d.fail(ctx, span, resp, err)
	}
	if err := d.issue(ctx, rename); err != nil {
		d.state.Rollback(rename)
		return d.fail(ctx, span, resp, fmt.Errorf("rename: %w", err))
	}

	d.metrics.RecordDecoration(ctx, string(cmd.Target.Kind), cmd.Mode.String())
	d.log.Info("decoration applied", "rename", rename.String(), "mode", cmd.Mode.String())
	resp.OK = true
	resp.Output = ReplyOK
	return resp
}

func (d *Daemon) fail(ctx context.Context, span trace.Span, resp Response, err error) Response {
	span.SetAttributes(attribute.String("error.type", "command"))
	d.metrics.RecordCommandFailure(ctx)
	d.log.Warn("request failed", "id", resp.ID, "err", err)
	resp.Output = err.Error()
	return resp
}

func (d *Daemon) issue(ctx context.Context, r state.Rename) error {
	switch {
	case r.Pane != nil:
		return d.mux.RenamePane(ctx, *r.Pane, r.Title)
	case r.Tab != nil:
		return d.mux.RenameTab(ctx, *r.Tab, r.Title)
	default:
		return fmt.Errorf("rename without target")
	}
}

func renameTarget(r state.Rename) string {
	if r.Pane != nil {
		return string(model.TargetPane)
	}
	return string(model.TargetTab)
}

func paneCount(m model.PaneManifest) int {
	n := 0
	for _, panes := range m {
		n += len(panes)
	}
	return n
}
