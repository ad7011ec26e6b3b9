package wordgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/natefinch/atomic"
)

// snapshot is the serializable representation of a trained model. Observed
// word lengths ride along so a loaded model is fully equivalent to the one
// that was saved, not just transition-equal.
type snapshot struct {
	SegmentLength int                       `json:"segment_length"`
	CaseFolding   *bool                     `json:"case_folding,omitempty"`
	MinWordLength int                       `json:"min_word_length"`
	MaxWordLength int                       `json:"max_word_length"`
	Transitions   map[string]map[string]int `json:"transitions"`
}

// Save writes the model as indented JSON to w. Loading the result with Load
// reconstructs an equivalent model: same contexts, same weights, and
// therefore identical words for the same random draws.
func (m *Model) Save(w io.Writer) error {
	fold := m.foldCase
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snapshot{
		SegmentLength: m.segmentLength,
		CaseFolding:   &fold,
		MinWordLength: m.minWordLen,
		MaxWordLength: m.maxWordLen,
		Transitions:   m.transitions,
	})
}

// SaveFile writes the model snapshot to path atomically, so a crash mid-write
// never leaves a partial snapshot behind.
func (m *Model) SaveFile(path string) error {
	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		return err
	}
	return atomic.WriteFile(path, &buf)
}

// Load reads a model snapshot from r, validating it against the schema.
// Schema violations (missing keys, negative or non-integer weights, contexts
// with no candidates) are reported as ErrMalformedSnapshot.
func Load(r io.Reader) (*Model, error) {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	if snap.SegmentLength < 1 {
		return nil, fmt.Errorf("%w: missing or invalid segment_length %d", ErrMalformedSnapshot, snap.SegmentLength)
	}
	if len(snap.Transitions) == 0 {
		return nil, fmt.Errorf("%w: no transitions", ErrMalformedSnapshot)
	}
	if len(snap.Transitions[StartContext]) == 0 {
		return nil, fmt.Errorf("%w: no start-of-word context %q", ErrMalformedSnapshot, StartContext)
	}
	if snap.MinWordLength < 0 || snap.MaxWordLength < snap.MinWordLength {
		return nil, fmt.Errorf("%w: invalid word length bounds [%d, %d]", ErrMalformedSnapshot, snap.MinWordLength, snap.MaxWordLength)
	}

	totalWeight := 0
	for context, weights := range snap.Transitions {
		if len(weights) == 0 {
			return nil, fmt.Errorf("%w: context %q has no candidates", ErrMalformedSnapshot, context)
		}
		contextTotal := 0
		for segment, weight := range weights {
			if weight < 0 {
				return nil, fmt.Errorf("%w: negative weight %d for %q -> %q", ErrMalformedSnapshot, weight, context, segment)
			}
			contextTotal += weight
		}
		if contextTotal == 0 {
			return nil, fmt.Errorf("%w: context %q has no candidate with positive weight", ErrMalformedSnapshot, context)
		}
		totalWeight += contextTotal
	}

	fold := true
	if snap.CaseFolding != nil {
		fold = *snap.CaseFolding
	}

	return &Model{
		segmentLength: snap.SegmentLength,
		foldCase:      fold,
		transitions:   snap.Transitions,
		minWordLen:    snap.MinWordLength,
		maxWordLen:    snap.MaxWordLength,
		totalWeight:   totalWeight,
	}, nil
}

// LoadFile reads a model snapshot from the file at path.
func LoadFile(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wordgen: could not open snapshot: %w", err)
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)
	return Load(file)
}
