package mockbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"pkt.systems/coderun/internal/logx"
	"pkt.systems/coderun/schema"
)

const inputQueueSize = 64

// Server is an in-memory execution backend that runs mock scripts instead of
// real programs. It speaks the same JSON protocol as the real backend.
type Server struct {
	mu      sync.Mutex
	baseCtx context.Context
	nextPID int
	procs   map[string]*process
	wg      sync.WaitGroup
}

// New constructs an empty mock backend. pids start at 1.
func New() *Server {
	return &Server{
		baseCtx: context.Background(),
		nextPID: 1,
		procs:   make(map[string]*process),
	}
}

// SetBaseContext sets the parent context for script lifetimes.
func (s *Server) SetBaseContext(ctx context.Context) {
	if s == nil || ctx == nil {
		return
	}
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
}

// Handler returns an http.Handler serving /run, /output, /input and /reset.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/run", s.handleRun)
	mux.HandleFunc("/output", s.handleOutput)
	mux.HandleFunc("/input", s.handleInput)
	mux.HandleFunc("/reset", s.handleReset)
	return withRequestLogging(mux)
}

// Close cancels every script and waits for them to stop.
func (s *Server) Close() {
	s.mu.Lock()
	for key, proc := range s.procs {
		proc.cancel()
		delete(s.procs, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Active returns the number of processes that have neither been reset nor
// finished and been drained.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload schema.RunRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("mock run decode failed", "err", err)
		writeError(w, http.StatusBadRequest, invalidRequest(err))
		return
	}
	script, err := parseScript(payload.Code)
	if err != nil {
		log.Warn("mock run parse failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	pid := schema.ParsePID(strconv.Itoa(s.nextPID))
	s.nextPID++
	ctx, cancel := context.WithCancel(s.baseCtx)
	proc := newProcess(pid, cancel)
	s.procs[pid.String()] = proc
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		proc.run(ctx, script)
	}()
	logx.WithPID(log, pid).Info("mock run started", "statements", len(script))
	writeJSON(w, http.StatusOK, schema.RunResponse{PID: pid})
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	var payload schema.OutputRequest
	proc, ok := s.lookup(w, r, &payload, func() schema.PID { return payload.PID })
	if !ok {
		return
	}
	resp := proc.drain()
	if resp.Finished {
		s.remove(proc)
		logx.WithPID(logx.Ctx(r.Context()), proc.pid).Debug("mock process drained")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var payload schema.InputRequest
	proc, ok := s.lookup(w, r, &payload, func() schema.PID { return payload.PID })
	if !ok {
		return
	}
	if !proc.feed(payload.Input) {
		logx.WithPID(logx.Ctx(r.Context()), proc.pid).Warn("mock input queue full")
		writeError(w, http.StatusConflict, errors.New("input queue full"))
		return
	}
	writeJSON(w, http.StatusOK, schema.InputResponse{Status: "ok"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var payload schema.ResetRequest
	proc, ok := s.lookup(w, r, &payload, func() schema.PID { return payload.PID })
	if !ok {
		return
	}
	s.remove(proc)
	proc.cancel()
	logx.WithPID(logx.Ctx(r.Context()), proc.pid).Info("mock reset")
	writeJSON(w, http.StatusOK, schema.ResetResponse{Status: schema.ResetStatusTerminated})
}

// lookup decodes a pid-carrying payload and resolves the process, writing
// the error response itself when it cannot.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, payload any, pid func() schema.PID) (*process, bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil, false
	}
	log := logx.Ctx(r.Context())
	if err := decodeJSON(r.Body, payload); err != nil {
		log.Warn("mock request decode failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadRequest, invalidRequest(err))
		return nil, false
	}
	id := pid()
	if id.IsZero() {
		writeError(w, http.StatusBadRequest, schema.ErrMissingPID)
		return nil, false
	}
	s.mu.Lock()
	proc := s.procs[id.String()]
	s.mu.Unlock()
	if proc == nil {
		log.Debug("mock unknown pid", "pid", id.String(), "path", r.URL.Path)
		writeError(w, http.StatusNotFound, schema.ErrUnknownProcess)
		return nil, false
	}
	return proc, true
}

// remove forgets proc unless its pid already maps to another process.
func (s *Server) remove(proc *process) {
	s.mu.Lock()
	if s.procs[proc.pid.String()] == proc {
		delete(s.procs, proc.pid.String())
	}
	s.mu.Unlock()
}

func invalidRequest(err error) error {
	return fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err)
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, schema.ErrorResponse{Error: err.Error()})
}
