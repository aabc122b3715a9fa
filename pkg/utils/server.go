package utils //nolint:revive // var-naming: utils is an acceptable package name for shared utilities

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// ServeHTTP binds srv.Addr and serves in the background. The returned channel
// receives the terminal serve error and is then closed; a clean Shutdown sends nothing.
func ServeHTTP(srv *http.Server, log logger.Logger) (chan error, error) {
	lis, err := net.Listen("tcp", srv.Addr) //nolint:noctx // http.Server manages listener lifecycle
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	errorChannel := make(chan error, 1)
	go func() {
		defer close(errorChannel)
		log.Info("Starting HTTP server", logger.StringField("address", lis.Addr().String()))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChannel <- err
		}
	}()
	return errorChannel, nil
}

// ShutdownHTTP gracefully stops srv, forcing it closed if ctx expires first.
func ShutdownHTTP(ctx context.Context, srv *http.Server, log logger.Logger) error {
	log.Info("Stopping HTTP server", logger.StringField("address", srv.Addr))
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
