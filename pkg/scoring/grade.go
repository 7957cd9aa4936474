package scoring

// GradeFromScore maps a 0-100 score to a letter grade.
func GradeFromScore(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// Grade is GradeFromScore for an optional score; nil yields GradeUnknown.
func Grade(score *int) string {
	if score == nil {
		return GradeUnknown
	}
	return GradeFromScore(*score)
}
