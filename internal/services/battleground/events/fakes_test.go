package events

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/admission"
)

type fakeOutbox struct {
	mu      sync.Mutex
	events  []admission.OutboxEvent
	readErr error
	reads   int
}

func newFakeOutbox(ids ...string) *fakeOutbox {
	out := &fakeOutbox{}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range ids {
		out.events = append(out.events, admission.OutboxEvent{
			ID:        id,
			Kind:      admission.EventKindJoined,
			Payload:   []byte(`{"id":"` + id + `"}`),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return out
}

func (f *fakeOutbox) PendingOutbox(_ context.Context, limit int) ([]admission.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	pending := make([]admission.OutboxEvent, 0, limit)
	for _, event := range f.events {
		if event.PublishedAt == nil {
			pending = append(pending, event)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.events {
		if f.events[i].ID == id {
			if f.events[i].PublishedAt == nil {
				f.events[i].PublishedAt = &at
			}
			return nil
		}
	}
	return errors.New("unknown event " + id)
}

func (f *fakeOutbox) pendingIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, event := range f.events {
		if event.PublishedAt == nil {
			ids = append(ids, event.ID)
		}
	}
	return ids
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []string
	failOn    string
	signal    chan string
}

func (p *recordingPublisher) Publish(_ context.Context, event admission.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.ID == p.failOn {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event.ID)
	if p.signal != nil {
		p.signal <- event.ID
	}
	return nil
}

func (p *recordingPublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}
