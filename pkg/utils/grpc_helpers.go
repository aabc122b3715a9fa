package utils //nolint:revive // var-naming: utils is an acceptable package name for shared utilities

import (
	"fmt"
	"net"

	"google.golang.org/grpc"

	"github.com/lewisedginton/slack_echo_bot/pkg/logger"
)

// Listen starts s on listenPort in the background. It returns the serve error
// channel, a hard closer and a graceful closer.
//
//	errChan, closer, gracefulCloser, err := Listen(server, 9095, log)
//	if err != nil {
//		return err
//	}
//	defer gracefulCloser()
func Listen(s *grpc.Server, listenPort int, log logger.Logger) (chan error, func(), func(), error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", listenPort)) //nolint:noctx // gRPC server manages listener lifecycle
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to listen on port %d: %w", listenPort, err)
	}

	errorChannel := make(chan error, 1)
	go func() {
		log.Info("Starting gRPC server", logger.StringField("address", lis.Addr().String()))
		errorChannel <- s.Serve(lis)
		close(errorChannel)
	}()

	gracefulCloser := func() {
		log.Info("Stopping gRPC server gracefully")
		s.GracefulStop()
	}
	closer := func() {
		log.Info("Stopping gRPC server")
		s.Stop()
	}
	return errorChannel, closer, gracefulCloser, nil
}
