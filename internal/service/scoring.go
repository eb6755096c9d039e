package service

// ComputeScore turns a list of per-answer correctness flags into the final
// percentage score. An attempt with no answers scores 0, never NaN.
func ComputeScore(correctness []bool) float64 {
	if len(correctness) == 0 {
		return 0
	}

	correct := 0
	for _, isCorrect := range correctness {
		if isCorrect {
			correct++
		}
	}

	return float64(correct) / float64(len(correctness)) * 100
}
