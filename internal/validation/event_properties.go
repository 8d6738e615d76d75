package validation

import (
	"context"
	"strings"

	"github.com/alanyoungcy/polycache/internal/domain"
)

type eventProperty = Property[domain.GammaEvent]

// DefaultEventProperties registers every Gamma event property.
func DefaultEventProperties() *Registry[domain.GammaEvent] {
	r := NewRegistry[domain.GammaEvent]()
	r.Register(func() eventProperty { return &EventSlugIsUnique{} })
	r.Register(func() eventProperty { return EventIdIsNonEmpty{} })
	return r
}

// EventSlugIsUnique fails for every event whose slug was seen earlier in
// the scan.
type EventSlugIsUnique struct {
	seen map[string]struct{}
}

func (p *EventSlugIsUnique) Check(_ context.Context, _ []byte, ev *domain.GammaEvent, _ domain.Snapshot) (bool, error) {
	if p.seen == nil {
		p.seen = make(map[string]struct{})
	}
	if _, dup := p.seen[ev.Slug]; dup {
		return false, nil
	}
	p.seen[ev.Slug] = struct{}{}
	return true, nil
}

// EventIdIsNonEmpty holds when the event has a non-zero id and a slug.
type EventIdIsNonEmpty struct{}

func (EventIdIsNonEmpty) Check(_ context.Context, _ []byte, ev *domain.GammaEvent, _ domain.Snapshot) (bool, error) {
	return ev.ID != 0 && strings.TrimSpace(ev.Slug) != "", nil
}
