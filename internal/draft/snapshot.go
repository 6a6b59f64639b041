package draft

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/victorjakob/mamareykjavik/internal/domain/event"
)

// Snapshot is the persisted shape of an in-progress event form: field values,
// UI toggles and the variant list. Dates are kept as naive form strings.
type Snapshot struct {
	Name             string   `json:"name"`
	ShortDescription string   `json:"shortdescription"`
	Description      string   `json:"description"`
	Date             string   `json:"date"`
	Duration         *float64 `json:"duration"`
	Location         string   `json:"location"`
	Price            int      `json:"price"`
	Payment          string   `json:"payment"`
	Host             string   `json:"host"`
	HostSecondary    string   `json:"host_secondary"`
	Capacity         Capacity `json:"capacity"`
	Image            string   `json:"image"`
	FacebookLink     string   `json:"facebook_link"`

	EarlyBirdPrice  *int   `json:"early_bird_price"`
	EarlyBirdDate   string `json:"early_bird_date"`
	SlidingScaleMin *int   `json:"sliding_scale_min"`
	SlidingScaleMax *int   `json:"sliding_scale_max"`

	HostingPolicyAgreed bool `json:"hosting_wl_policy_agreed"`

	ShowEarlyBird      bool `json:"showEarlyBird"`
	ShowSlidingScale   bool `json:"showSlidingScale"`
	ShowVariants       bool `json:"showVariants"`
	ShowCustomLocation bool `json:"showCustomLocation"`

	TicketVariants []event.TicketVariant `json:"ticketVariants"`

	// SourceID is set on create drafts opened from a duplicate of another event.
	SourceID string    `json:"sourceId,omitempty"`
	SavedAt  time.Time `json:"savedAt"`
}

// Capacity is the textual capacity input. It accepts a JSON number, string or
// null, and every "unset" spelling (0, null, undefined, "") becomes "".
type Capacity string

func (c *Capacity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Capacity(s).Normalize()
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = Capacity(n.String()).Normalize()
	return nil
}

// Normalize maps the unset spellings to "".
func (c Capacity) Normalize() Capacity {
	s := strings.TrimSpace(string(c))
	switch s {
	case "", "0", "null", "undefined":
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == 0 {
		return ""
	}
	return Capacity(s)
}

// Int returns the parsed capacity, nil when unset.
func (c Capacity) Int() (*int, error) {
	s := c.Normalize()
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(string(s))
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// CapacityOf renders an optional capacity as form text.
func CapacityOf(n *int) Capacity {
	if n == nil {
		return ""
	}
	return Capacity(strconv.Itoa(*n)).Normalize()
}
