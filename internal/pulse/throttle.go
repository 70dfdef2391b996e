package pulse

import "context"

// Throttle paces calls to an external dependency. *rate.Limiter satisfies
// this interface, which is how production wiring builds throttles.
type Throttle interface {
	Wait(ctx context.Context) error
}

// NopThrottle never delays. Use in tests.
type NopThrottle struct{}

func (NopThrottle) Wait(context.Context) error { return nil }

// Throttles groups the pacing applied to each external concern of a run.
// Nil fields disable pacing for that concern.
type Throttles struct {
	ChannelFetch Throttle
	UserLookup   Throttle
	Classify     Throttle
	Notify       Throttle
}

// NopThrottles disables all pacing. Use in tests.
func NopThrottles() Throttles {
	return Throttles{
		ChannelFetch: NopThrottle{},
		UserLookup:   NopThrottle{},
		Classify:     NopThrottle{},
		Notify:       NopThrottle{},
	}
}
