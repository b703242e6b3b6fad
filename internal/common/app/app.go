package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// CreateContextWithShutdown returns a context that is cancelled when SIGINT or SIGTERM is received,
// or when the returned cancel function is called. A second signal exits the process immediately.
func CreateContextWithShutdown() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-c:
			log.Warnf("Received %s, finishing in-flight probes and saving results; signal again to abort", sig)
			cancel()
		case <-ctx.Done():
			signal.Stop(c)
			return
		}
		sig := <-c
		log.Errorf("Received %s again, exiting without saving", sig)
		os.Exit(1)
	}()
	return ctx, cancel
}
