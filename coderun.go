package coderun

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/coderun/core"
	"pkt.systems/coderun/internal/backendhttp"
	"pkt.systems/coderun/internal/eventbus"
	"pkt.systems/coderun/internal/logx"
	"pkt.systems/coderun/internal/persist"
	"pkt.systems/coderun/schema"
	"pkt.systems/pslog"
)

// ClientConfig configures a session client.
type ClientConfig struct {
	Backend backendhttp.Config
	Session schema.SessionConfig
	// StateDir enables the session record when set.
	StateDir string
}

// ClientDeps captures optional collaborators.
type ClientDeps struct {
	// Backend replaces the HTTP backend built from ClientConfig.Backend.
	Backend    core.Backend
	Editor     core.Editor
	EventSinks []core.EventSink
	Logger     pslog.Logger
}

// Client wires a session to its backend, event bus and session record.
type Client struct {
	session *core.Session
	backend core.Backend
	bus     *eventbus.Bus
	store   *persist.Store
}

// New constructs a client. Without ClientDeps.Backend an HTTP backend is
// built from cfg.Backend.
func New(cfg ClientConfig, deps ClientDeps) (*Client, error) {
	backend := deps.Backend
	backendURL := ""
	if backend == nil {
		httpBackend, err := backendhttp.New(cfg.Backend)
		if err != nil {
			return nil, err
		}
		backend = httpBackend
		backendURL = httpBackend.BaseURL()
	}

	bus := eventbus.New(deps.Logger)
	sinks := make([]core.EventSink, 0, len(deps.EventSinks)+2)
	var store *persist.Store
	if cfg.StateDir != "" {
		var err error
		store, err = persist.NewStoreWithLogger(cfg.StateDir, deps.Logger)
		if err != nil {
			return nil, fmt.Errorf("state store: %w", err)
		}
		sinks = append(sinks, persist.NewRecorder(store, backendURL))
	}
	sinks = append(sinks, deps.EventSinks...)
	sinks = append(sinks, bus)

	session, err := core.NewSession(cfg.Session, core.SessionDeps{
		Backend:   backend,
		Editor:    deps.Editor,
		EventSink: eventFanout{sinks: sinks},
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Client{session: session, backend: backend, bus: bus, store: store}, nil
}

// Session returns the session client.
func (c *Client) Session() *core.Session {
	return c.session
}

// Backend returns the backend the session talks to.
func (c *Client) Backend() core.Backend {
	return c.backend
}

// Subscribe delivers session events of the given types (all when empty).
func (c *Client) Subscribe(kinds ...schema.SessionEventType) (<-chan schema.SessionEvent, func()) {
	return c.bus.Subscribe(kinds...)
}

// Close stops polling and waits for background teardowns.
func (c *Client) Close() {
	c.session.Close()
}

// TerminateRecorded stops the process named by the session record left in
// store, if any, and removes the record. It reports the pid it acted on.
func TerminateRecorded(ctx context.Context, backend core.Backend, store *persist.Store) (schema.PID, error) {
	if backend == nil || store == nil {
		return schema.PID{}, errors.New("backend and store are required")
	}
	record, ok, err := store.Load()
	if err != nil {
		return schema.PID{}, fmt.Errorf("load session record: %w", err)
	}
	if !ok {
		return schema.PID{}, schema.ErrNoActiveSession
	}
	log := logx.WithPID(pslog.Ctx(ctx), record.PID)
	if err := backend.Reset(ctx, record.PID); err != nil {
		var backendErr *core.BackendError
		if !errors.As(err, &backendErr) || backendErr.Kind != core.BackendErrorNotFound {
			log.Warn("recorded session terminate failed", "err", err)
			return record.PID, fmt.Errorf("reset: %w", err)
		}
		log.Info("recorded session already gone")
	}
	if err := store.Clear(); err != nil {
		return record.PID, err
	}
	log.Info("recorded session terminated", "started_at", record.StartedAt)
	return record.PID, nil
}
