package domain

// Severity grades an emergency classification.
type Severity string

const (
	SeverityNone Severity = "NONE"
	SeverityHigh Severity = "HIGH"
	// SeverityCritical is assigned when two or more red-flag categories
	// match at once (e.g. cardiac plus respiratory).
	SeverityCritical Severity = "CRITICAL"
)

// Classification is the result of running a classifier over user text.
// Both the emergency and the scope classifiers produce this shape, so the
// gate can treat them uniformly and implementations can be swapped
// (pattern-based or model-based) without changing the state machine.
type Classification struct {
	// Matched reports whether the classifier's condition holds: a red
	// flag for the emergency classifier, medical relevance for the scope
	// classifier.
	Matched bool

	// Categories names the matched red-flag categories, most severe
	// first. Empty for scope classification.
	Categories []string

	// Keywords are the phrases that triggered the match.
	Keywords []string

	// Severity grades emergency matches.
	Severity Severity
}
