package frameset

import (
	"fmt"
	"sort"
)

// Split is the archive group a sequence is written to.
type Split string

const (
	Train Split = "train"
	Test  Split = "test"
)

// Sequence is one planned sequence.
type Sequence struct {
	Index int   // position in the source frames, 0-based
	Split Split // train or test
	Slot  int   // dense 0-based number within the split
}

// Plan assigns complete runs of frames to train and test.
type Plan struct {
	framesPerSequence int
	count             int
	test              map[int]bool
}

// NewPlan divides frames into floor(frames/framesPerSequence) sequences.
// Trailing frames that do not fill a sequence are dropped. Every test index
// must name one of those sequences; duplicates count once.
func NewPlan(frames, framesPerSequence int, testSequences []int) (*Plan, error) {
	if framesPerSequence <= 0 {
		return nil, fmt.Errorf("frames per sequence must be positive, got %d", framesPerSequence)
	}
	n := frames / framesPerSequence
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d frames, %d per sequence", ErrTooFewFrames, frames, framesPerSequence)
	}
	test := make(map[int]bool, len(testSequences))
	for _, idx := range testSequences {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrTestSequenceRange, idx, n)
		}
		test[idx] = true
	}
	return &Plan{framesPerSequence: framesPerSequence, count: n, test: test}, nil
}

// Count returns the number of sequences.
func (p *Plan) Count() int { return p.count }

// FramesPerSequence returns the sequence length.
func (p *Plan) FramesPerSequence() int { return p.framesPerSequence }

// TotalFrames returns the frames covered by sequences.
func (p *Plan) TotalFrames() int { return p.count * p.framesPerSequence }

// TestCount returns the number of distinct test sequences.
func (p *Plan) TestCount() int { return len(p.test) }

// TrainCount returns the number of train sequences.
func (p *Plan) TrainCount() int { return p.count - len(p.test) }

// TestIndices returns the sorted test sequence indices.
func (p *Plan) TestIndices() []int {
	out := make([]int, 0, len(p.test))
	for idx := range p.test {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Sequences returns every sequence in source order with its split and
// slot. Slots count up from zero separately for train and test.
func (p *Plan) Sequences() []Sequence {
	out := make([]Sequence, p.count)
	var train, test int
	for i := range out {
		if p.test[i] {
			out[i] = Sequence{Index: i, Split: Test, Slot: test}
			test++
		} else {
			out[i] = Sequence{Index: i, Split: Train, Slot: train}
			train++
		}
	}
	return out
}

// FrameIndex returns the 1-based global frame index of frame f within
// sequence s.
func (p *Plan) FrameIndex(s, f int) int {
	return f + p.framesPerSequence*s + 1
}
