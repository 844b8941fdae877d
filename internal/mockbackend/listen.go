package mockbackend

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"pkt.systems/pslog"
)

const shutdownTimeout = 5 * time.Second

// ListenAndServe serves the mock backend on addr until ctx is cancelled.
// Running scripts are cancelled on the way out.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	logger := pslog.Ctx(ctx)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.SetBaseContext(ctx)
	server := &http.Server{
		Handler:  s.Handler(),
		ErrorLog: pslog.LogLoggerWithLevel(logger, pslog.ErrorLevel),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	logger.Info("mock backend listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	defer s.Close()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
