package eventform

import (
	"github.com/victorjakob/mamareykjavik/internal/domain/event"
	"github.com/victorjakob/mamareykjavik/internal/domain/user"
	"github.com/victorjakob/mamareykjavik/internal/draft"
)

// FormValues is what the operator has entered. Dates are naive form strings
// and capacity is text; both are parsed only when a payload is built.
type FormValues struct {
	Name             string         `json:"name" binding:"required,notblank,max=120"`
	ShortDescription string         `json:"shortdescription" binding:"required,notblank,max=300"`
	Description      string         `json:"description" binding:"required,notblank,max=10000"`
	Date             string         `json:"date" binding:"required"`
	Duration         *float64       `json:"duration" binding:"omitempty,gt=0"`
	Location         string         `json:"location" binding:"max=200"`
	Price            int            `json:"price" binding:"min=0"`
	Payment          event.Payment  `json:"payment" binding:"required,oneof=online door free"`
	Host             string         `json:"host" binding:"omitempty,email"`
	HostSecondary    string         `json:"host_secondary" binding:"omitempty,email"`
	Capacity         draft.Capacity `json:"capacity"`
	Image            string         `json:"image"`
	FacebookLink     string         `json:"facebook_link" binding:"omitempty,url"`

	EarlyBirdPrice  *int   `json:"early_bird_price" binding:"omitempty,min=0"`
	EarlyBirdDate   string `json:"early_bird_date"`
	SlidingScaleMin *int   `json:"sliding_scale_min" binding:"omitempty,min=0"`
	SlidingScaleMax *int   `json:"sliding_scale_max" binding:"omitempty,min=0"`

	HostingPolicyAgreed bool `json:"hosting_wl_policy_agreed" binding:"required"`

	ShowEarlyBird      bool `json:"showEarlyBird"`
	ShowSlidingScale   bool `json:"showSlidingScale"`
	ShowVariants       bool `json:"showVariants"`
	ShowCustomLocation bool `json:"showCustomLocation"`

	// validated per element, and only while ShowVariants is on
	TicketVariants []event.TicketVariant `json:"ticket_variants" binding:"-"`
}

func defaultValues(actor user.Actor) FormValues {
	return FormValues{
		Location: event.DefaultLocation,
		Payment:  event.PaymentOnline,
		Host:     actor.Email,
	}
}

// valuesFromEvent seeds the form from a stored record. Toggles are
// reconstructed from which optional data is present.
func valuesFromEvent(e event.Event) FormValues {
	v := FormValues{
		Name:                e.Name,
		ShortDescription:    e.ShortDescription,
		Description:         e.Description,
		Date:                event.FormatFormDate(e.Date),
		Duration:            e.Duration,
		Location:            e.Location,
		Price:               e.Price,
		Payment:             e.Payment,
		Host:                e.Host,
		HostSecondary:       deref(e.HostSecondary),
		Capacity:            draft.CapacityOf(e.Capacity),
		Image:               e.Image,
		FacebookLink:        deref(e.FacebookLink),
		EarlyBirdPrice:      e.EarlyBirdPrice,
		SlidingScaleMin:     e.SlidingScaleMin,
		SlidingScaleMax:     e.SlidingScaleMax,
		HostingPolicyAgreed: e.HostingPolicyAgreed,

		ShowEarlyBird:      e.EarlyBirdPrice != nil,
		ShowSlidingScale:   e.HasSlidingScale,
		ShowVariants:       len(e.TicketVariants) > 0,
		ShowCustomLocation: e.Location != "" && e.Location != event.DefaultLocation,

		TicketVariants: e.TicketVariants,
	}
	if e.EarlyBirdDate != nil {
		v.EarlyBirdDate = event.FormatFormDate(*e.EarlyBirdDate)
	}
	return v
}

// duplicateValues copies a record into a fresh create form, dropping the
// fields that identify the original.
func duplicateValues(e event.Event) FormValues {
	e.TicketVariants = nil
	v := valuesFromEvent(e)

	v.FacebookLink = ""
	v.HostingPolicyAgreed = false
	if v.Image == event.DefaultImageURL {
		v.Image = ""
	}
	return v
}

func valuesFromSnapshot(s draft.Snapshot) FormValues {
	return FormValues{
		Name:                s.Name,
		ShortDescription:    s.ShortDescription,
		Description:         s.Description,
		Date:                s.Date,
		Duration:            s.Duration,
		Location:            s.Location,
		Price:               s.Price,
		Payment:             event.Payment(s.Payment),
		Host:                s.Host,
		HostSecondary:       s.HostSecondary,
		Capacity:            s.Capacity.Normalize(),
		Image:               s.Image,
		FacebookLink:        s.FacebookLink,
		EarlyBirdPrice:      s.EarlyBirdPrice,
		EarlyBirdDate:       s.EarlyBirdDate,
		SlidingScaleMin:     s.SlidingScaleMin,
		SlidingScaleMax:     s.SlidingScaleMax,
		HostingPolicyAgreed: s.HostingPolicyAgreed,

		ShowEarlyBird:      s.ShowEarlyBird,
		ShowSlidingScale:   s.ShowSlidingScale,
		ShowVariants:       s.ShowVariants,
		ShowCustomLocation: s.ShowCustomLocation,

		TicketVariants: s.TicketVariants,
	}
}

func (v FormValues) snapshot() draft.Snapshot {
	return draft.Snapshot{
		Name:                v.Name,
		ShortDescription:    v.ShortDescription,
		Description:         v.Description,
		Date:                v.Date,
		Duration:            v.Duration,
		Location:            v.Location,
		Price:               v.Price,
		Payment:             string(v.Payment),
		Host:                v.Host,
		HostSecondary:       v.HostSecondary,
		Capacity:            v.Capacity,
		Image:               v.Image,
		FacebookLink:        v.FacebookLink,
		EarlyBirdPrice:      v.EarlyBirdPrice,
		EarlyBirdDate:       v.EarlyBirdDate,
		SlidingScaleMin:     v.SlidingScaleMin,
		SlidingScaleMax:     v.SlidingScaleMax,
		HostingPolicyAgreed: v.HostingPolicyAgreed,

		ShowEarlyBird:      v.ShowEarlyBird,
		ShowSlidingScale:   v.ShowSlidingScale,
		ShowVariants:       v.ShowVariants,
		ShowCustomLocation: v.ShowCustomLocation,

		TicketVariants: v.TicketVariants,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
