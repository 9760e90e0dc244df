package emotion

// Frame holds the per-label probabilities (0..100) the classifier produced for one
// sampled video frame. A nil or empty Frame means no face was detected.
type Frame map[Label]float64

// FrameFromMap builds a Frame from raw classifier output. Unknown labels are dropped.
// A nil or empty input yields a nil Frame.
func FrameFromMap(raw map[string]float64) Frame {
	if len(raw) == 0 {
		return nil
	}

	frame := make(Frame, len(canonical))
	for key, value := range raw {
		label, ok := ParseLabel(key)
		if !ok {
			continue
		}
		frame[label] = value
	}

	if len(frame) == 0 {
		return nil
	}
	return frame
}

// HasFace reports whether the frame carries a classifier result.
func (f Frame) HasFace() bool { return len(f) > 0 }

// Dominant returns the label with the highest probability. Ties go to the label that
// comes first in canonical order. ok is false for frames without a face.
func Dominant(f Frame) (label Label, ok bool) {
	if !f.HasFace() {
		return "", false
	}

	best := -1.0
	for _, l := range canonical {
		v, present := f[l]
		if !present {
			continue
		}
		if v > best {
			best = v
			label = l
		}
	}
	return label, label != ""
}

// IsPositive reports whether the dominant emotion of the frame has positive valence.
func IsPositive(f Frame) bool {
	label, ok := Dominant(f)
	return ok && label.Positive()
}

// Mood summarizes the per-frame dominant emotions of a recording.
type Mood struct {
	// Dominant is the label that dominates the most frames with a face.
	Dominant Label `json:"dominant,omitempty"`
	// PositiveShare is the fraction of frames with a face whose dominant label is positive.
	PositiveShare float64 `json:"positive_share"`
	Frames        int     `json:"frames"`
}

// Summarize counts dominant labels over frames with a face. Ties go to the label that
// comes first in canonical order.
func Summarize(frames []Frame) Mood {
	var counts [len(canonical)]int
	var mood Mood
	positive := 0

	for _, f := range frames {
		label, ok := Dominant(f)
		if !ok {
			continue
		}
		counts[label.index()]++
		mood.Frames++
		if IsPositive(f) {
			positive++
		}
	}

	if mood.Frames == 0 {
		return mood
	}

	best := 0
	for i, c := range counts {
		if c > best {
			best = c
			mood.Dominant = canonical[i]
		}
	}
	mood.PositiveShare = float64(positive) / float64(mood.Frames)

	return mood
}
