package event

import (
	"time"

	"github.com/google/uuid"
)

// NewFromPayload builds a fresh Event record with a new id.
func NewFromPayload(p Payload) Event {
	now := time.Now().UTC()

	e := Event{
		ID:        uuid.NewString(),
		CreatedAt: now,
	}
	e.Apply(p)
	e.UpdatedAt = now

	return e
}

// Apply overwrites every payload-owned field of e.
func (e *Event) Apply(p Payload) {
	e.Slug = p.Slug
	e.Name = p.Name
	e.ShortDescription = p.ShortDescription
	e.Description = p.Description
	e.Date = p.Date.UTC()
	e.Duration = p.Duration
	e.Location = p.Location
	e.Price = p.Price
	e.Payment = p.Payment
	e.Host = p.Host
	e.HostSecondary = p.HostSecondary
	e.Capacity = p.Capacity
	e.Image = p.Image
	e.EarlyBirdPrice = p.EarlyBirdPrice
	e.EarlyBirdDate = p.EarlyBirdDate
	e.HasSlidingScale = p.HasSlidingScale
	e.SlidingScaleMin = p.SlidingScaleMin
	e.SlidingScaleMax = p.SlidingScaleMax
	e.SlidingScaleSuggested = p.SlidingScaleSuggested
	e.TicketVariants = p.TicketVariants
	e.HostingPolicyAgreed = p.HostingPolicyAgreed
	e.FacebookLink = p.FacebookLink
	e.UpdatedAt = time.Now().UTC()
}
