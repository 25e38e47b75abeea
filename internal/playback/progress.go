package playback

import "time"

// startProgressLocked starts the periodic display refresh. Any running
// refresh is invalidated first.
func (e *Engine) startProgressLocked() {
	e.stopProgressLocked()
	if e.progressInterval <= 0 {
		return
	}
	e.progressToken++
	token := e.progressToken
	stop := make(chan struct{})
	e.progressStop = stop

	go func() {
		ticker := time.NewTicker(e.progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !e.refresh(token) {
					return
				}
			}
		}
	}()
}

// stopProgressLocked cancels the refresh. The token is bumped under the
// engine lock, so a tick already waiting on the lock becomes a no-op.
func (e *Engine) stopProgressLocked() {
	e.progressToken++
	if e.progressStop != nil {
		close(e.progressStop)
		e.progressStop = nil
	}
}

// refresh publishes the live position. Returns false once the token is stale.
func (e *Engine) refresh(token uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if token != e.progressToken || !e.session.playing {
		return false
	}
	e.display = e.session.Elapsed(e.clock.Now())
	e.publishPosition(e.display)
	return true
}
