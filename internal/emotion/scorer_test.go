package emotion

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-6

func interviewFrames() []Frame {
	return []Frame{
		{Sad: 10, Fear: 5, Angry: 15, Disgust: 2, Happy: 50, Neutral: 10, Surprise: 8},
		{Sad: 20, Fear: 10, Angry: 10, Disgust: 5, Happy: 40, Neutral: 15, Surprise: 5},
	}
}

func defaultScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultWeights())
	require.NoError(t, err)
	return s
}

func TestAggregateAveragesValidFrames(t *testing.T) {
	totals := Aggregate(interviewFrames())

	assert.Equal(t, 2, totals.Frames)
	assert.InDelta(t, 0.15, totals.Sad, 1e-12)
	assert.InDelta(t, 0.075, totals.Fear, 1e-12)
	assert.InDelta(t, 0.125, totals.Angry, 1e-12)
	assert.InDelta(t, 0.035, totals.Disgust, 1e-12)
	assert.InDelta(t, 0.45, totals.Happy, 1e-12)
	assert.InDelta(t, 0.125, totals.Neutral, 1e-12)
	assert.InDelta(t, 0.065, totals.Surprise, 1e-12)
}

func TestAggregateSkipsFramesWithoutFace(t *testing.T) {
	frames := interviewFrames()
	withGaps := []Frame{nil, frames[0], {}, frames[1], nil}

	assert.Equal(t, Aggregate(frames), Aggregate(withGaps))
}

func TestAggregateEmptyInput(t *testing.T) {
	for name, frames := range map[string][]Frame{
		"nil":        nil,
		"empty":      {},
		"all absent": {nil, {}, nil},
	} {
		t.Run(name, func(t *testing.T) {
			totals := Aggregate(frames)
			assert.Equal(t, 0, totals.Frames)
			for _, l := range Labels() {
				assert.Zero(t, totals.Get(l), "label %s", l)
			}
		})
	}
}

func TestAccumulatorMatchesAggregate(t *testing.T) {
	var acc Accumulator
	for _, f := range interviewFrames() {
		acc.Add(f)
	}
	acc.Add(nil)

	assert.Equal(t, 2, acc.Count())
	assert.Equal(t, Aggregate(interviewFrames()), acc.Totals())
}

func TestScoreWorkedExample(t *testing.T) {
	res := defaultScorer(t).ScoreFrames(interviewFrames())

	assert.InDelta(t, 0.2391196834817013, res.Mean, tolerance)
	assert.InDelta(t, 0.3337817638266069, res.Result, tolerance)
	assert.InDelta(t, 89.58774073575991, res.Conf, tolerance)
	assert.Equal(t, 2, res.Frames)
	assert.False(t, res.NoSignal())
}

func TestScoreWithoutFacesIsNeutral(t *testing.T) {
	res := defaultScorer(t).ScoreFrames([]Frame{nil, nil})

	assert.Zero(t, res.Mean)
	assert.Zero(t, res.Result)
	assert.Equal(t, 50.0, res.Conf)
	assert.True(t, res.NoSignal())
}

func TestScoreUniformFrame(t *testing.T) {
	frame := Frame{}
	for _, l := range Labels() {
		frame[l] = 100.0 / 7
	}

	res := defaultScorer(t).ScoreFrames([]Frame{frame})

	assert.False(t, math.IsNaN(res.Mean))
	assert.False(t, math.IsNaN(res.Result))
	assert.InDelta(t, 0.18701298701298702, res.Mean, tolerance)
	assert.InDelta(t, 0.733007733007733, res.Result, tolerance)
	assert.Equal(t, 100.0, res.Conf)
}

func TestScoreSingleDominantEmotion(t *testing.T) {
	tests := []struct {
		name   string
		frame  Frame
		mean   float64
		result float64
		conf   float64
	}{
		{
			name:   "neutral only",
			frame:  Frame{Neutral: 100},
			mean:   1.0 / 7,
			result: 1.0 / 7,
			conf:   50,
		},
		{
			name:   "happy only",
			frame:  Frame{Happy: 100},
			mean:   1.0 / 7,
			result: 1.0 / 7,
			conf:   50,
		},
		{
			name:   "disgust only",
			frame:  Frame{Disgust: 100},
			mean:   1.0 / 7,
			result: 6.0 / 7,
			conf:   100,
		},
	}

	s := defaultScorer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.ScoreFrames([]Frame{tt.frame})
			assert.InDelta(t, tt.mean, res.Mean, tolerance)
			assert.InDelta(t, tt.result, res.Result, tolerance)
			assert.InDelta(t, tt.conf, res.Conf, tolerance)
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	s := defaultScorer(t)
	totals := Aggregate(interviewFrames())

	first := s.Score(totals)
	second := s.Score(totals)

	assert.Equal(t, math.Float64bits(first.Mean), math.Float64bits(second.Mean))
	assert.Equal(t, math.Float64bits(first.Result), math.Float64bits(second.Result))
	assert.Equal(t, math.Float64bits(first.Conf), math.Float64bits(second.Conf))
}

func TestScoreConcurrentCallers(t *testing.T) {
	s := defaultScorer(t)
	want := s.ScoreFrames(interviewFrames())

	var wg sync.WaitGroup
	results := make([]Result, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.ScoreFrames(interviewFrames())
		}()
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestScoreConfidenceStaysInBounds(t *testing.T) {
	s := defaultScorer(t)
	values := []float64{0, 0.5, 3, 12.5, 40, 77, 100}

	for _, a := range values {
		for _, b := range values {
			frame := Frame{Sad: a, Fear: b, Angry: a / 2, Disgust: b / 3, Happy: 100 - a, Neutral: 100 - b, Surprise: (a + b) / 2}
			res := s.ScoreFrames([]Frame{frame})
			assert.GreaterOrEqual(t, res.Conf, 0.0)
			assert.LessOrEqual(t, res.Conf, 100.0)
			assert.GreaterOrEqual(t, res.Mean, 0.0)
			assert.LessOrEqual(t, res.Mean, 1.0)
			assert.GreaterOrEqual(t, res.Result, 0.0)
			assert.LessOrEqual(t, res.Result, 1.0)
		}
	}
}

// Disgust has no monotone effect: min-max normalization makes both means jump
// whenever disgust changes which score is the minimum or maximum.
func TestScoreDisgustSensitivity(t *testing.T) {
	tests := []struct {
		disgust float64
		result  float64
		conf    float64
	}{
		{disgust: 0, result: 0.278298611111111, conf: 55.3083779884583},
		{disgust: 1, result: 0.263417658730159, conf: 91.5226244701714},
		{disgust: 2, result: 0.252430298544288, conf: 71.7549308432733},
		{disgust: 3, result: 0.309210820478426, conf: 85.3090107606011},
		{disgust: 5, result: 0.395840391492565, conf: 96.1135715526345},
		{disgust: 10, result: 0.52652097666262, conf: 100},
		{disgust: 100, result: 0.802934996571782, conf: 100},
	}

	s := defaultScorer(t)
	got := make([]Result, 0, len(tests))
	for _, tt := range tests {
		frames := interviewFrames()
		for _, f := range frames {
			f[Disgust] = tt.disgust
		}

		res := s.ScoreFrames(frames)
		assert.InDelta(t, tt.result, res.Result, tolerance, "disgust=%v", tt.disgust)
		assert.InDelta(t, tt.conf, res.Conf, tolerance, "disgust=%v", tt.disgust)
		got = append(got, res)
	}

	assert.Less(t, got[2].Conf, got[1].Conf, "conf drops between disgust 1 and 2")
	assert.Less(t, got[2].Result, got[0].Result, "result drops between disgust 0 and 2")
}

func TestScoreUsesCustomWeights(t *testing.T) {
	w := DefaultWeights()
	w.Happy = 3

	custom, err := NewScorer(w)
	require.NoError(t, err)

	base := defaultScorer(t).ScoreFrames(interviewFrames())
	tuned := custom.ScoreFrames(interviewFrames())

	assert.NotEqual(t, base, tuned)
	assert.Equal(t, w, custom.Weights())
}

func TestNewScorerRejectsInvalidWeights(t *testing.T) {
	w := DefaultWeights()
	w.Neutral = 0
	w.Disgust = math.NaN()

	_, err := NewScorer(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neutral")
	assert.Contains(t, err.Error(), "disgust")
}
