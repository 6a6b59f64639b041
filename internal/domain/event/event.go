package event

import (
	"errors"
	"strings"
	"time"
)

// DefaultLocation is the venue address used when the operator does not override it.
const DefaultLocation = "Bankastræti 2, 101 Reykjavík"

// DefaultImageURL is the placeholder shown for events without an uploaded image.
const DefaultImageURL = "/images/event-placeholder.jpg"

type Payment string

const (
	PaymentOnline Payment = "online"
	PaymentDoor   Payment = "door"
	PaymentFree   Payment = "free"
)

func (p Payment) IsValid() bool {
	switch p {
	case PaymentOnline, PaymentDoor, PaymentFree:
		return true
	default:
		return false
	}
}

// TicketVariant is one priced ticket option. Order in a list is significant.
type TicketVariant struct {
	Name     string         `json:"name" binding:"required,notblank"`
	Price    int            `json:"price" binding:"min=0"`
	Capacity *int           `json:"capacity" binding:"omitempty,min=1"`
	Meta     map[string]any `json:"meta"`
}

type Event struct {
	ID               string    `json:"id"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	ShortDescription string    `json:"shortdescription"`
	Description      string    `json:"description"`
	Date             time.Time `json:"date"`
	Duration         *float64  `json:"duration,omitempty"`
	Location         string    `json:"location"`
	Price            int       `json:"price"`
	Payment          Payment   `json:"payment"`
	Host             string    `json:"host"`
	HostSecondary    *string   `json:"host_secondary,omitempty"`
	Capacity         *int      `json:"capacity,omitempty"`
	Image            string    `json:"image"`

	EarlyBirdPrice *int       `json:"early_bird_price"`
	EarlyBirdDate  *time.Time `json:"early_bird_date"`

	HasSlidingScale       bool `json:"has_sliding_scale"`
	SlidingScaleMin       *int `json:"sliding_scale_min"`
	SlidingScaleMax       *int `json:"sliding_scale_max"`
	SlidingScaleSuggested *int `json:"sliding_scale_suggested"`

	// only populated by the per-event variant fetch
	TicketVariants []TicketVariant `json:"ticket_variants"`

	HostingPolicyAgreed bool    `json:"hosting_wl_policy_agreed"`
	FacebookLink        *string `json:"facebook_link,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HostedBy reports whether email is the event's host or secondary host.
func (e Event) HostedBy(email string) bool {
	if email == "" {
		return false
	}
	if strings.EqualFold(e.Host, email) {
		return true
	}
	return e.HostSecondary != nil && strings.EqualFold(*e.HostSecondary, email)
}

// Payload is the full write shape sent to the create and update operations.
// A nil TicketVariants means "no variants"; it is never an empty slice.
type Payload struct {
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	ShortDescription string    `json:"shortdescription"`
	Description      string    `json:"description"`
	Date             time.Time `json:"date"`
	Duration         *float64  `json:"duration"`
	Location         string    `json:"location"`
	Price            int       `json:"price"`
	Payment          Payment   `json:"payment"`
	Host             string    `json:"host"`
	HostSecondary    *string   `json:"host_secondary"`
	Capacity         *int      `json:"capacity"`
	Image            string    `json:"image"`

	EarlyBirdPrice *int       `json:"early_bird_price"`
	EarlyBirdDate  *time.Time `json:"early_bird_date"`

	HasSlidingScale       bool `json:"has_sliding_scale"`
	SlidingScaleMin       *int `json:"sliding_scale_min"`
	SlidingScaleMax       *int `json:"sliding_scale_max"`
	SlidingScaleSuggested *int `json:"sliding_scale_suggested"`

	TicketVariants []TicketVariant `json:"ticket_variants"`

	HostingPolicyAgreed bool    `json:"hosting_wl_policy_agreed"`
	FacebookLink        *string `json:"facebook_link"`
}

var (
	ErrNotFound  = errors.New("event not found")
	ErrSlugTaken = errors.New("event slug already exists")
)
