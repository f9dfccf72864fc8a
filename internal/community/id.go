package community

import (
	"sync"
	"time"
)

// IDProvider issues strictly increasing identifiers.
type IDProvider interface {
	NextID() int64
}

type clockIDProvider struct {
	mu    sync.Mutex
	clock func() time.Time
	last  int64
}

// NewClockIDProvider issues epoch-millisecond identifiers, bumping past the
// previous value when two are requested within the same millisecond.
func NewClockIDProvider(clock func() time.Time) IDProvider {
	if clock == nil {
		clock = time.Now
	}
	return &clockIDProvider{clock: clock}
}

func (p *clockIDProvider) NextID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.clock().UnixMilli()
	if next <= p.last {
		next = p.last + 1
	}
	p.last = next
	return next
}
