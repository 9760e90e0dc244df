package emotion

import "strings"

// Label is one of the canonical facial emotion categories reported by the classifier.
type Label string

const (
	Sad      Label = "sad"
	Fear     Label = "fear"
	Angry    Label = "angry"
	Disgust  Label = "disgust"
	Happy    Label = "happy"
	Neutral  Label = "neutral"
	Surprise Label = "surprise"
)

var canonical = [...]Label{Sad, Fear, Angry, Disgust, Happy, Neutral, Surprise}

// Labels returns the canonical labels in classifier order.
func Labels() []Label {
	labels := make([]Label, len(canonical))
	copy(labels, canonical[:])
	return labels
}

// ParseLabel maps a classifier label to a canonical one, ignoring case and surrounding spaces.
func ParseLabel(s string) (Label, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, l := range canonical {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// Positive reports whether the label counts as positive or neutral affect.
func (l Label) Positive() bool {
	switch l {
	case Happy, Neutral, Surprise:
		return true
	default:
		return false
	}
}

func (l Label) index() int {
	for i, c := range canonical {
		if c == l {
			return i
		}
	}
	return -1
}
