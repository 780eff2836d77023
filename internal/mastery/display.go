package mastery

// LabelFor maps a mastery level to its display label.
func LabelFor(level float64) Label {
	switch {
	case level >= 90:
		return LabelMaster
	case level >= 70:
		return LabelPractitioner
	case level >= 40:
		return LabelApprentice
	default:
		return LabelNovice
	}
}

var labelThresholds = []float64{40, 70, 90}

// NextLabelAt returns the level at which the next label is reached. It
// reports false once the level is already at LabelMaster.
func NextLabelAt(level float64) (float64, bool) {
	for _, th := range labelThresholds {
		if level < th {
			return th, true
		}
	}
	return 0, false
}
