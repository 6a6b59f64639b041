package pricing

import (
	"strconv"
	"time"
)

// Display is the listing-ready rendering of a Quote.
type Display struct {
	Kind            Kind           `json:"kind"`
	Active          string         `json:"active,omitempty"`
	StruckThrough   string         `json:"struckThrough,omitempty"`
	Caption         string         `json:"caption,omitempty"`
	Range           string         `json:"range,omitempty"`
	MultipleOptions bool           `json:"multipleOptions"`
	Options         []VariantPrice `json:"options,omitempty"`
}

func Render(q Quote) Display {
	d := Display{
		Kind:            q.Kind,
		MultipleOptions: q.MultipleOptions(),
		Options:         q.Variants,
	}

	if q.Kind != KindVariants {
		d.Active = FormatISK(q.Active)
	}
	if q.Reference != nil {
		d.StruckThrough = FormatISK(*q.Reference)
	}
	if q.Until != nil {
		d.Caption = "Until " + q.Until.UTC().Format("2 Jan 2006")
	}
	if q.Sliding != nil {
		d.Range = strconv.Itoa(q.Sliding.Min) + "–" + strconv.Itoa(q.Sliding.Max) + " kr"
	}

	return d
}

// FormatISK renders whole krónur, e.g. "2000 kr".
func FormatISK(amount int) string {
	return strconv.Itoa(amount) + " kr"
}

// For is EffectivePrice followed by Render.
func For(in Input, now time.Time) Display {
	return Render(EffectivePrice(in, now))
}
