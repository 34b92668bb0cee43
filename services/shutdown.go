// cartservice/services/shutdown.go

package services

import (
	"time"

	"google.golang.org/grpc"
)

// GracefulStop ends open Watch streams on cart, then gracefully stops srv.
// When in-flight RPCs outlive timeout the server is stopped hard. It reports
// whether the graceful path completed.
func GracefulStop(srv *grpc.Server, cart *CartServiceServer, timeout time.Duration) bool {
	if cart != nil {
		cart.Stop()
	}

	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		srv.Stop()
		<-done
		return false
	}
}
