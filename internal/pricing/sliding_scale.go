package pricing

import "fmt"

type ErrorKind string

const (
	RangeInvalid    ErrorKind = "range_invalid"
	PriceOutOfRange ErrorKind = "price_out_of_range"
)

// ValidationError is a sliding-scale invariant violation. Field names the
// form input the failure is reported against.
type ValidationError struct {
	Kind  ErrorKind
	Field string
	Min   int
	Max   int
	Price int
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case RangeInvalid:
		return fmt.Sprintf("minimum price (%d) must be less than maximum price (%d)", e.Min, e.Max)
	case PriceOutOfRange:
		return fmt.Sprintf("price (%d) must be between the minimum (%d) and maximum (%d)", e.Price, e.Min, e.Max)
	default:
		return "invalid sliding scale"
	}
}

// ValidateSlidingScale checks min < max first, then min <= price <= max.
func ValidateSlidingScale(price, min, max int) error {
	if min >= max {
		return &ValidationError{Kind: RangeInvalid, Field: "sliding_scale_min", Min: min, Max: max, Price: price}
	}
	if price < min || price > max {
		return &ValidationError{Kind: PriceOutOfRange, Field: "price", Min: min, Max: max, Price: price}
	}
	return nil
}
