package reader

import "time"

// Batches groups lines into slices of at most size lines. A partial
// batch is emitted when flush elapses without it filling up, so slow
// followed files still make progress. flush <= 0 disables the timer.
// Lines carrying an error are forwarded in their own batch position.
func Batches(lines <-chan Line, size int, flush time.Duration) <-chan []Line {
	if size < 1 {
		size = 1
	}
	out := make(chan []Line)

	go func() {
		defer close(out)

		var tick <-chan time.Time
		if flush > 0 {
			ticker := time.NewTicker(flush)
			defer ticker.Stop()
			tick = ticker.C
		}

		pending := make([]Line, 0, size)
		emit := func() {
			if len(pending) == 0 {
				return
			}
			out <- pending
			pending = make([]Line, 0, size)
		}

		for {
			select {
			case line, ok := <-lines:
				if !ok {
					emit()
					return
				}
				pending = append(pending, line)
				if len(pending) == size {
					emit()
				}
			case <-tick:
				emit()
			}
		}
	}()

	return out
}
