package ml

// Risk band labels.
const (
	HighRisk     = "High Risk"
	ModerateRisk = "Moderate Risk"
	LowRisk      = "Low Risk"
)

// Categorize maps a probability to its risk band. The bands partition [0,1]
// with inclusive lower bounds at 0.4 and 0.75.
func Categorize(proba float64) string {
	switch {
	case proba >= 0.75:
		return HighRisk
	case proba >= 0.4:
		return ModerateRisk
	default:
		return LowRisk
	}
}
