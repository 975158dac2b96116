package main

import (
	"context"

	"github.com/MrWong99/spokenform/internal/config"
)

// rebuilder builds normalizers one at a time. A config requested while a
// build runs replaces any config still waiting, so only the newest one is
// built next and builds never finish out of order.
type rebuilder struct {
	build func(*config.Config)
	next  chan *config.Config
}

func newRebuilder(build func(*config.Config)) *rebuilder {
	return &rebuilder{build: build, next: make(chan *config.Config, 1)}
}

// request queues cfg for the next build.
func (r *rebuilder) request(cfg *config.Config) {
	for {
		select {
		case r.next <- cfg:
			return
		default:
		}
		select {
		case <-r.next:
		default:
		}
	}
}

// run builds queued configs until ctx ends.
func (r *rebuilder) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-r.next:
			r.build(cfg)
		}
	}
}
