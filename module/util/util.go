package util

import (
	"github.com/onflow/evm-fleet/module"
)

// AllReady starts every component and returns a channel closed once all of them
// are ready.
func AllReady(components ...module.ReadyDoneAware) <-chan struct{} {
	return allClosed(components, module.ReadyDoneAware.Ready)
}

// AllDone shuts every component down and returns a channel closed once all of
// them are done.
func AllDone(components ...module.ReadyDoneAware) <-chan struct{} {
	return allClosed(components, module.ReadyDoneAware.Done)
}

func allClosed(components []module.ReadyDoneAware, signal func(module.ReadyDoneAware) <-chan struct{}) <-chan struct{} {
	channels := make([]<-chan struct{}, 0, len(components))
	for _, c := range components {
		channels = append(channels, signal(c))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, ch := range channels {
			<-ch
		}
	}()
	return done
}
