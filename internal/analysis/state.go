package analysis

import "workfocus/internal/workitem"

// State is a step of one analysis run.
type State int

const (
	// Fresh means no usable cached result exists for the fingerprint.
	Fresh State = iota
	CachedValid
	// CachedExpired means a result exists but is past its TTL. It is treated as Fresh.
	CachedExpired
	ProviderOK
	// ProviderFailed covers an error from the provider and an empty answer.
	ProviderFailed
	Fallback
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "FRESH"
	case CachedValid:
		return "CACHED_VALID"
	case CachedExpired:
		return "CACHED_EXPIRED"
	case ProviderOK:
		return "PROVIDER_OK"
	case ProviderFailed:
		return "PROVIDER_FAILED"
	case Fallback:
		return "FALLBACK"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the result of Analyze together with how it was reached.
type Outcome struct {
	Result      workitem.AnalysisResult
	State       State
	Path        []State
	Fingerprint string
}
