package index

// Complexity tiers derived from the popularity counter at read time.
// Changing the thresholds reclassifies every record without a migration.
const (
	ComplexityBeginner     = "Beginner"
	ComplexityIntermediate = "Intermediate"
	ComplexityAdvanced     = "Advanced"
)

// ComplexityFor maps a usage counter to its tier.
func ComplexityFor(usage int) string {
	switch {
	case usage > 1000:
		return ComplexityAdvanced
	case usage > 100:
		return ComplexityIntermediate
	default:
		return ComplexityBeginner
	}
}

// ValidComplexity reports whether s names one of the three tiers.
func ValidComplexity(s string) bool {
	return s == ComplexityBeginner || s == ComplexityIntermediate || s == ComplexityAdvanced
}
