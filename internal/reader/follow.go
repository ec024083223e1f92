package reader

import (
	"context"
	"fmt"

	"github.com/nxadm/tail"
)

// Follow tails the file at path, surviving rotation, and yields new
// lines until ctx is done. Line numbers count from the start of the
// follow.
func Follow(ctx context.Context, path string, poll bool) (<-chan Line, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      poll,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("tail %s: %w", path, err)
	}

	lines := make(chan Line)
	go func() {
		defer close(lines)
		defer t.Cleanup()
		defer func() { _ = t.Stop() }()

		n := 0
		for {
			select {
			case <-ctx.Done():
				return
			case tl, ok := <-t.Lines:
				if !ok {
					if err := t.Err(); err != nil {
						send(ctx, lines, Line{Number: n + 1, Err: err})
					}
					return
				}
				n++
				line := Line{Number: n, Err: tl.Err}
				if tl.Err == nil {
					line.Data = []byte(tl.Text)
				}
				if !send(ctx, lines, line) {
					return
				}
			}
		}
	}()
	return lines, nil
}

func send(ctx context.Context, ch chan<- Line, l Line) bool {
	select {
	case ch <- l:
		return true
	case <-ctx.Done():
		return false
	}
}
