package emotion

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// midpoint is the confidence reported for balanced affect.
	midpoint = 50.0
	// maxCorrection caps how far the confidence may move away from midpoint.
	maxCorrection = 50.0
)

// Weights are the per-emotion multipliers applied to averaged probabilities.
// Neutral is a divisor: the neutral average is divided by it.
type Weights struct {
	Sad      float64 `mapstructure:"sad" json:"sad"`
	Fear     float64 `mapstructure:"fear" json:"fear"`
	Angry    float64 `mapstructure:"angry" json:"angry"`
	Disgust  float64 `mapstructure:"disgust" json:"disgust"`
	Happy    float64 `mapstructure:"happy" json:"happy"`
	Surprise float64 `mapstructure:"surprise" json:"surprise"`
	Neutral  float64 `mapstructure:"neutral" json:"neutral"`
}

// DefaultWeights returns the calibrated weights. Disgust is amplified because the
// classifier reports it rarely, neutral is damped because it is the most common state.
func DefaultWeights() Weights {
	return Weights{
		Sad:      1.3,
		Fear:     1.3,
		Angry:    1.3,
		Disgust:  10,
		Happy:    1.7,
		Surprise: 1.4,
		Neutral:  1.2,
	}
}

// Validate checks that every weight is a positive finite number.
func (w Weights) Validate() error {
	values := map[Label]float64{
		Sad: w.Sad, Fear: w.Fear, Angry: w.Angry, Disgust: w.Disgust,
		Happy: w.Happy, Surprise: w.Surprise, Neutral: w.Neutral,
	}
	var errs []error
	for _, l := range canonical {
		v := values[l]
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			errs = append(errs, fmt.Errorf("weight for %s must be a positive number, got %v", l, v))
		}
	}
	return errors.Join(errs...)
}

// Totals are the per-label probabilities averaged over frames with a face,
// scaled to 0..1.
type Totals struct {
	Sad      float64 `json:"sad"`
	Fear     float64 `json:"fear"`
	Angry    float64 `json:"angry"`
	Disgust  float64 `json:"disgust"`
	Happy    float64 `json:"happy"`
	Neutral  float64 `json:"neutral"`
	Surprise float64 `json:"surprise"`
	// Frames is the number of frames that contributed.
	Frames int `json:"frames"`
}

// Get returns the average for a label.
func (t Totals) Get(l Label) float64 {
	switch l {
	case Sad:
		return t.Sad
	case Fear:
		return t.Fear
	case Angry:
		return t.Angry
	case Disgust:
		return t.Disgust
	case Happy:
		return t.Happy
	case Neutral:
		return t.Neutral
	case Surprise:
		return t.Surprise
	default:
		return 0
	}
}

// Result is the outcome of scoring one interview video.
type Result struct {
	// Mean is the average of the min-max normalized weighted scores.
	Mean float64 `json:"mean"`
	// Result is the same average after negative emotions are sign-flipped.
	Result float64 `json:"result"`
	// Conf is the confidence score in [0, 100], 50 being balanced affect.
	Conf float64 `json:"conf"`
	// Frames is the number of frames with a detected face.
	Frames int `json:"frames"`
}

// NoSignal reports whether the result was computed without usable facial data.
func (r Result) NoSignal() bool { return r.Mean == 0 && r.Result == 0 }

// Accumulator sums frame probabilities incrementally. The zero value is ready to use.
type Accumulator struct {
	sums  [len(canonical)]float64
	count int
}

// Add folds a frame into the running sums. Frames without a face are skipped.
func (a *Accumulator) Add(f Frame) {
	if !f.HasFace() {
		return
	}
	for label, value := range f {
		if i := label.index(); i >= 0 {
			a.sums[i] += value
		}
	}
	a.count++
}

// Count returns how many frames were accumulated.
func (a *Accumulator) Count() int { return a.count }

// Totals returns the averages so far. With no frames every average is zero.
func (a *Accumulator) Totals() Totals {
	divisor := float64(max(a.count, 1) * 100)
	avg := func(l Label) float64 { return a.sums[l.index()] / divisor }

	return Totals{
		Sad:      avg(Sad),
		Fear:     avg(Fear),
		Angry:    avg(Angry),
		Disgust:  avg(Disgust),
		Happy:    avg(Happy),
		Neutral:  avg(Neutral),
		Surprise: avg(Surprise),
		Frames:   a.count,
	}
}

// Aggregate averages the frames that have a face.
func Aggregate(frames []Frame) Totals {
	var acc Accumulator
	for _, f := range frames {
		acc.Add(f)
	}
	return acc.Totals()
}

// Scorer turns aggregated emotions into a confidence result. It holds no mutable
// state and is safe for concurrent use.
type Scorer struct {
	weights Weights
}

// NewScorer validates the weights and returns a scorer.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid emotion weights: %w", err)
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the weights in use.
func (s *Scorer) Weights() Weights { return s.weights }

// ScoreFrames aggregates the frames and scores them.
func (s *Scorer) ScoreFrames(frames []Frame) Result {
	return s.Score(Aggregate(frames))
}

// Score computes the confidence for aggregated totals.
func (s *Scorer) Score(t Totals) Result {
	w := s.weights
	sad := t.Sad * w.Sad
	fear := t.Fear * w.Fear
	angry := t.Angry * w.Angry
	disgust := t.Disgust * w.Disgust
	happy := t.Happy * w.Happy
	neutral := t.Neutral / w.Neutral
	surprise := t.Surprise * w.Surprise

	mean := normalizedMean([]float64{sad, angry, surprise, fear, happy, disgust, neutral})
	result := normalizedMean([]float64{-sad, -angry, surprise, -fear, happy, -disgust, neutral})

	return Result{
		Mean:   mean,
		Result: result,
		Conf:   confidence(mean, result),
		Frames: t.Frames,
	}
}

// normalizedMean min-max scales the scores to [0, 1] and averages them.
// Scores without spread normalize to zero.
func normalizedMean(scores []float64) float64 {
	lo, hi := floats.Min(scores), floats.Max(scores)
	spread := hi - lo

	normalized := make([]float64, len(scores))
	if spread != 0 {
		for i, v := range scores {
			normalized[i] = (v - lo) / spread
		}
	}
	return stat.Mean(normalized, nil)
}

func confidence(mean, result float64) float64 {
	// mean is zero only when there is no spread; treat it as no divergence.
	if mean == 0 {
		return midpoint
	}

	difference := math.Abs((mean-result)/mean) * 100
	if difference > maxCorrection {
		difference = maxCorrection
	}

	if mean > result {
		return midpoint - difference
	}
	return midpoint + difference
}
