package workspace

import (
	"context"
	"slices"
	"sync"

	"deployboard/application/ports"
)

const maxPendingNotices = 100

// NoticeBoard queues notices until a client drains them and forwards each
// one to subscribers as it arrives.
type NoticeBoard struct {
	mu          sync.Mutex
	pending     []ports.Notice
	subscribers []func(ports.Notice)
}

func NewNoticeBoard() *NoticeBoard {
	return &NoticeBoard{}
}

// Notify implements ports.Notifier. The oldest notice is dropped once the
// queue is full.
func (b *NoticeBoard) Notify(_ context.Context, n ports.Notice) {
	b.mu.Lock()
	if len(b.pending) >= maxPendingNotices {
		b.pending = b.pending[1:]
	}
	b.pending = append(b.pending, n)
	subs := slices.Clone(b.subscribers)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}

// Subscribe registers fn for every future notice.
func (b *NoticeBoard) Subscribe(fn func(ports.Notice)) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, fn)
	b.mu.Unlock()
}

// Drain returns and clears the queued notices.
func (b *NoticeBoard) Drain() []ports.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}
