package sigcontext

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/autopatch/autopatch/pkg/logging"
)

// WithSignalCancel returns a context that is cancelled when one of sigs is
// delivered. The signal is logged so an interrupted run can be told apart
// from a failed one. The returned cancel releases the signal handlers and
// must be called; after it runs, further signals get the runtime's default
// behaviour again.
func WithSignalCancel(ctx context.Context, log logging.Logger, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	sigctx, ctxcancel := context.WithCancel(ctx)

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, sigs...)

	var once sync.Once
	cancel := func() {
		ctxcancel()
		once.Do(func() {
			signal.Stop(sigchan)
			close(sigchan)
		})
	}

	go func() {
		for {
			select {
			case <-sigctx.Done():
				return
			case sig, ok := <-sigchan:
				if !ok {
					return
				}
				log.WithField("signal", sig).Warn("received signal, cancelling run")
				ctxcancel()
			}
		}
	}()

	return sigctx, cancel
}
