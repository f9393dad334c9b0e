package engine

import "github.com/argonaut-dev/argonaut/pkg/argo"

// Config holds configuration for the core engine.
type Config struct {
	// User identifies the gateway principal on every backend request. The
	// Argo API requires it; requests without one are rejected upstream.
	User string

	// PseudoStream forces emulated streaming for all streaming requests,
	// even when the backend could stream the model natively.
	PseudoStream bool

	// MaxStreamBytes bounds how much backend stream output the engine will
	// buffer when a complete response is required before emitting anything.
	// Zero or negative means the default of 8 MiB.
	MaxStreamBytes int64

	// ProbeModel is the model used for the upstream status probe. Empty
	// means "argo:gpt-4o".
	ProbeModel string

	// Estimator supplies synthetic token counts, since the backend reports
	// no usage. Nil means whitespace word counting.
	Estimator argo.TokenEstimator
}

// maxStreamBytes returns the effective buffering bound.
func (c Config) maxStreamBytes() int64 {
	if c.MaxStreamBytes <= 0 {
		return 8 << 20
	}
	return c.MaxStreamBytes
}

// probeModel returns the effective status probe model.
func (c Config) probeModel() string {
	if c.ProbeModel == "" {
		return "argo:gpt-4o"
	}
	return c.ProbeModel
}
