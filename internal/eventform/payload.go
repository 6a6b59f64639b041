package eventform

import (
	"strings"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
	"github.com/victorjakob/mamareykjavik/internal/domain/user"
	"github.com/victorjakob/mamareykjavik/internal/variants"
)

// buildPayload maps checked form values to the write shape.
func buildPayload(v FormValues, p parsed, actor user.Actor) event.Payload {
	out := event.Payload{
		Slug:                event.Slug(v.Name, p.date),
		Name:                strings.TrimSpace(v.Name),
		ShortDescription:    v.ShortDescription,
		Description:         v.Description,
		Date:                p.date.UTC(),
		Duration:            v.Duration,
		Location:            event.DefaultLocation,
		Price:               v.Price,
		Payment:             v.Payment,
		Host:                strings.TrimSpace(v.Host),
		HostSecondary:       optional(strings.TrimSpace(v.HostSecondary)),
		Capacity:            p.capacity,
		Image:               v.Image,
		FacebookLink:        optional(strings.TrimSpace(v.FacebookLink)),
		HostingPolicyAgreed: v.HostingPolicyAgreed,
	}

	if out.Host == "" {
		out.Host = actor.Email
	}
	if out.Image == "" {
		out.Image = event.DefaultImageURL
	}
	if loc := strings.TrimSpace(v.Location); v.ShowCustomLocation && loc != "" {
		out.Location = loc
	}

	// early bird is all or nothing
	if v.ShowEarlyBird && v.EarlyBirdPrice != nil && p.earlyBirdDate != nil {
		price := *v.EarlyBirdPrice
		date := p.earlyBirdDate.UTC()
		out.EarlyBirdPrice = &price
		out.EarlyBirdDate = &date
	}

	if v.ShowSlidingScale {
		suggested := v.Price
		out.HasSlidingScale = true
		out.SlidingScaleMin = v.SlidingScaleMin
		out.SlidingScaleMax = v.SlidingScaleMax
		out.SlidingScaleSuggested = &suggested
	}

	if v.ShowVariants {
		out.TicketVariants = variants.NewEditor(v.TicketVariants).Payload()
	}

	return out
}
