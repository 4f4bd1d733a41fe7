package calibrate

import "time"

// Family is a coarse classification of backend providers used to pick
// a starting timeout before any calibration data exists. Callers
// declare a backend's family at registration time; the calibrator
// never guesses from the component name.
type Family int

const (
	// FamilyGeneric is the fallback for undeclared backends.
	FamilyGeneric Family = iota
	// FamilyOpenAI covers OpenAI-compatible chat/completion APIs.
	FamilyOpenAI
	// FamilyAnthropic covers Anthropic message APIs.
	FamilyAnthropic
	// FamilyGoogle covers Google generative AI APIs.
	FamilyGoogle
	// FamilyLocal covers locally hosted model servers, which tend to
	// be slower but also cheaper to wait for.
	FamilyLocal
)

// String returns the string representation of the family.
func (f Family) String() string {
	switch f {
	case FamilyOpenAI:
		return "openai"
	case FamilyAnthropic:
		return "anthropic"
	case FamilyGoogle:
		return "google"
	case FamilyLocal:
		return "local"
	default:
		return "generic"
	}
}

// DefaultTimeout returns the cold-start timeout for the family.
func (f Family) DefaultTimeout() time.Duration {
	switch f {
	case FamilyOpenAI:
		return 30 * time.Second
	case FamilyAnthropic:
		return 45 * time.Second
	case FamilyGoogle:
		return 30 * time.Second
	case FamilyLocal:
		return 60 * time.Second
	default:
		return 30 * time.Second
	}
}
