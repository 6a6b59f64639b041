// Package pricing decides which price an event advertises at a given instant.
// Everything here is pure: no storage, no network, no clock reads.
package pricing

import (
	"time"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
)

type Input struct {
	Price           int
	EarlyBirdPrice  *int
	EarlyBirdDate   *time.Time
	HasSlidingScale bool
	SlidingScaleMin *int
	SlidingScaleMax *int
	TicketVariants  []event.TicketVariant
}

func InputFromEvent(e event.Event) Input {
	return Input{
		Price:           e.Price,
		EarlyBirdPrice:  e.EarlyBirdPrice,
		EarlyBirdDate:   e.EarlyBirdDate,
		HasSlidingScale: e.HasSlidingScale,
		SlidingScaleMin: e.SlidingScaleMin,
		SlidingScaleMax: e.SlidingScaleMax,
		TicketVariants:  e.TicketVariants,
	}
}

type Kind string

const (
	KindBase      Kind = "base"
	KindEarlyBird Kind = "early_bird"
	KindVariants  Kind = "variants"
)

type VariantPrice struct {
	Name     string `json:"name"`
	Price    int    `json:"price"`
	Capacity *int   `json:"capacity,omitempty"`
}

type Range struct {
	Min       int `json:"min"`
	Max       int `json:"max"`
	Suggested int `json:"suggested"`
}

// Quote is the outcome of EffectivePrice. For KindVariants there is no
// single Active price; consumers list Variants instead.
type Quote struct {
	Kind      Kind
	Active    int
	Reference *int
	Until     *time.Time
	Variants  []VariantPrice
	Sliding   *Range
}

func (q Quote) MultipleOptions() bool {
	return q.Kind == KindVariants
}

// EffectivePrice applies, in order: an early-bird price while now is before
// the cutoff, then per-variant pricing, then the base price.
func EffectivePrice(in Input, now time.Time) Quote {
	q := Quote{Sliding: slidingRange(in)}

	if in.EarlyBirdPrice != nil && in.EarlyBirdDate != nil && now.Before(*in.EarlyBirdDate) {
		base := in.Price
		until := *in.EarlyBirdDate

		q.Kind = KindEarlyBird
		q.Active = *in.EarlyBirdPrice
		q.Reference = &base
		q.Until = &until
		return q
	}

	if len(in.TicketVariants) > 0 {
		q.Kind = KindVariants
		q.Variants = make([]VariantPrice, 0, len(in.TicketVariants))
		for _, v := range in.TicketVariants {
			q.Variants = append(q.Variants, VariantPrice{Name: v.Name, Price: v.Price, Capacity: v.Capacity})
		}
		return q
	}

	q.Kind = KindBase
	q.Active = in.Price
	return q
}

func slidingRange(in Input) *Range {
	if !in.HasSlidingScale || in.SlidingScaleMin == nil || in.SlidingScaleMax == nil {
		return nil
	}
	return &Range{Min: *in.SlidingScaleMin, Max: *in.SlidingScaleMax, Suggested: in.Price}
}
