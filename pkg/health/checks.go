package health

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/resilience"
)

// Ping wraps a connectivity probe. A failing probe reports StatusDown, or
// StatusDegraded when optional is set.
func Ping(ping func(ctx context.Context) error, optional bool) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			status := StatusDown
			if optional {
				status = StatusDegraded
			}
			return ComponentHealth{Status: status, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// Breaker maps a circuit breaker state: closed is up, half-open degraded,
// open down.
func Breaker(state func() resilience.State) Check {
	return func(context.Context) ComponentHealth {
		switch s := state(); s {
		case resilience.StateClosed:
			return ComponentHealth{Status: StatusUp}
		case resilience.StateHalfOpen:
			return ComponentHealth{Status: StatusDegraded, Message: "circuit half-open"}
		default:
			return ComponentHealth{Status: StatusDown, Message: "circuit " + s.String()}
		}
	}
}

// Loaded reports up when every expected component is loaded.
func Loaded(loaded func() int, want int) Check {
	return func(context.Context) ComponentHealth {
		n := loaded()
		if n < want {
			return ComponentHealth{Status: StatusDown, Message: fmt.Sprintf("%d of %d loaded", n, want)}
		}
		return ComponentHealth{Status: StatusUp, Message: fmt.Sprintf("%d loaded", n)}
	}
}

// Disabled reports a component that is switched off by configuration.
func Disabled(reason string) Check {
	return func(context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDegraded, Message: reason}
	}
}
