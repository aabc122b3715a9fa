// Package utils holds small helpers for running the service's listeners side by side.
package utils //nolint:revive // var-naming: utils is an acceptable package name for shared utilities

import "sync"

// MergeErrorChans fans several listener error channels into one. The output
// channel is closed once every input channel is closed.
//
//	errs := MergeErrorChans(httpErrs, metricsErrs, grpcErrs)
//	err := <-errs // first listener to fail
func MergeErrorChans(channels ...chan error) chan error {
	out := make(chan error)
	var wg sync.WaitGroup

	for _, ch := range channels {
		if ch == nil {
			continue
		}
		wg.Add(1)
		go func(c chan error) {
			defer wg.Done()
			for err := range c {
				out <- err
			}
		}(ch)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
