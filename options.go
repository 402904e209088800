package arbvm

import "github.com/ethereum/go-ethereum/common"

// Option configures an Engine.
type Option func(*Engine)

// WithAuditor routes completed batch and flow records to a. Nil keeps the
// default no-op auditor.
func WithAuditor(a Auditor) Option {
	return func(e *Engine) {
		if a != nil {
			e.auditor = a
		}
	}
}

// WithPermissionRegistry points delegated allowance grants at registry.
// Registry grants are written with expiration and renewed whenever a
// recorded grant expires sooner; zero keeps the far-future default.
func WithPermissionRegistry(registry common.Address, expiration uint64) Option {
	return func(e *Engine) {
		e.registry = registry
		if expiration != 0 {
			e.registryExpiry = expiration
		}
	}
}

// WithFixedRoute installs the venue identifiers the routed flows trade
// through.
func WithFixedRoute(r FixedRoute) Option {
	return func(e *Engine) {
		e.route = r
	}
}
