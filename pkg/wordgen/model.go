package wordgen

import (
	"errors"
	"iter"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// StartContext is the reserved context key representing the start of a
	// word. It must not appear as a segment in any dictionary word.
	StartContext = "<SOW>"
	// EndSegment is the reserved candidate key marking the end of a word.
	// Drawing it during generation completes the word.
	EndSegment = "<EOW>"
	// DefaultSegmentLength is the segment window size used when
	// WithSegmentLength is not given.
	DefaultSegmentLength = 2
)

var (
	// ErrEmptyDictionary is returned when a model is built from zero usable words.
	ErrEmptyDictionary = errors.New("wordgen: dictionary contains no usable words")
	// ErrInvalidLengthRange is returned when a length range is negative or inverted.
	ErrInvalidLengthRange = errors.New("wordgen: invalid length range")
	// ErrUnsatisfiable is returned when the attempt cap is exhausted without
	// producing a word that meets the minimum length.
	ErrUnsatisfiable = errors.New("wordgen: length constraints cannot be satisfied by the model")
	// ErrMalformedSnapshot is returned when a persisted model fails schema
	// validation on load.
	ErrMalformedSnapshot = errors.New("wordgen: malformed model snapshot")
)

// Model is a weighted transition table over word segments, built once from a
// dictionary and read-only during generation. Contexts map to candidate next
// segments, each annotated with an occurrence count; the sum of a context's
// weights equals the number of times that context was observed in training.
type Model struct {
	segmentLength int
	foldCase      bool
	transitions   map[string]map[string]int
	minWordLen    int
	maxWordLen    int
	totalWeight   int
}

// Candidate is a possible next segment under some context, with the number of
// times that transition was observed.
type Candidate struct {
	Segment string
	Weight  int
}

// ModelStats holds aggregated statistics for a Model.
type ModelStats struct {
	Contexts    int // The number of distinct context keys.
	Transitions int // The number of unique context->candidate links.
	TotalWeight int // The sum of all link weights; the total number of trained transitions.
	Starters    int // The number of unique segments that can start a word.
	MinWordLen  int // The shortest word length (in runes) observed in training.
	MaxWordLen  int // The longest word length (in runes) observed in training.
}

// SegmentLength returns the segment window size the model was built with.
func (m *Model) SegmentLength() int {
	return m.segmentLength
}

// Candidates returns the candidate set for a context, sorted by segment text,
// along with the sum of their weights. An unknown context returns a nil slice
// and a total of zero.
func (m *Model) Candidates(context string) ([]Candidate, int) {
	weights := m.transitions[context]
	if len(weights) == 0 {
		return nil, 0
	}
	candidates := make([]Candidate, 0, len(weights))
	total := 0
	for segment, weight := range weights {
		candidates = append(candidates, Candidate{Segment: segment, Weight: weight})
		total += weight
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Segment < candidates[j].Segment
	})
	return candidates, total
}

// Stats returns a snapshot of aggregate statistics for the model.
func (m *Model) Stats() ModelStats {
	links := 0
	for _, weights := range m.transitions {
		links += len(weights)
	}
	return ModelStats{
		Contexts:    len(m.transitions),
		Transitions: links,
		TotalWeight: m.totalWeight,
		Starters:    len(m.transitions[StartContext]),
		MinWordLen:  m.minWordLen,
		MaxWordLen:  m.maxWordLen,
	}
}

// Add merges additional words into the model, enabling amalgam languages built
// from several dictionaries. Empty and whitespace-only entries are skipped.
// It returns ErrEmptyDictionary only if the model holds no transitions after
// the merge.
func (m *Model) Add(words iter.Seq[string]) error {
	for word := range words {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		if m.foldCase {
			word = strings.ToLower(word)
		}
		m.addWord(word)
	}
	if len(m.transitions) == 0 {
		return ErrEmptyDictionary
	}
	return nil
}

// addWord cuts a word into consecutive rune chunks of segmentLength and
// records the start -> chunk, chunk -> chunk and chunk -> end transitions.
func (m *Model) addWord(word string) {
	length := utf8.RuneCountInString(word)
	if m.minWordLen == 0 || length < m.minWordLen {
		m.minWordLen = length
	}
	if length > m.maxWordLen {
		m.maxWordLen = length
	}

	runes := []rune(word)
	context := StartContext
	for i := 0; i < len(runes); i += m.segmentLength {
		end := i + m.segmentLength
		if end > len(runes) {
			end = len(runes)
		}
		segment := string(runes[i:end])
		m.bump(context, segment)
		context = segment
	}
	m.bump(context, EndSegment)
}

func (m *Model) bump(context, segment string) {
	weights := m.transitions[context]
	if weights == nil {
		weights = make(map[string]int)
		m.transitions[context] = weights
	}
	weights[segment]++
	m.totalWeight++
}
