package wordgen

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math/rand/v2"
	"strings"
	"unicode/utf8"
)

// generatorOptions Is used by NewGenerator to configure default options.
type generatorOptions struct {
	weighted      bool
	maxAttempts   int
	defaultMaxLen int
	rng           *rand.Rand
}

// GeneratorOption is a function that configures a Generator at construction.
type GeneratorOption func(*generatorOptions)

// WithWeighted specifies whether candidates are sampled in proportion to
// their observed frequency. When false, distinct candidates are sampled
// uniformly, giving more exposure to rare constructions. Default: true.
func WithWeighted(weighted bool) GeneratorOption {
	return func(o *generatorOptions) { o.weighted = weighted }
}

// WithMaxAttempts sets the number of restarts GenerateOne may make before
// giving up with ErrUnsatisfiable. Default: 50.
func WithMaxAttempts(n int) GeneratorOption {
	return func(o *generatorOptions) { o.maxAttempts = n }
}

// WithDefaultMaxLength sets the rough maximum length used by the Words
// iterator. Default: 14.
func WithDefaultMaxLength(n int) GeneratorOption {
	return func(o *generatorOptions) { o.defaultMaxLen = n }
}

// WithRand sets the random source for sampling. Generation becomes a pure
// function of the model and the source's draw sequence, which makes output
// reproducible from a seed. The default is the shared top-level rand source.
// A *rand.Rand is not safe for concurrent use; give each generator its own.
func WithRand(rng *rand.Rand) GeneratorOption {
	return func(o *generatorOptions) { o.rng = rng }
}

// Generator produces words by a constrained weighted random walk over a
// Model's transition table. It never mutates the model, so any number of
// generators may share one.
type Generator struct {
	model         *Model
	weighted      bool
	maxAttempts   int
	defaultMaxLen int
	rng           *rand.Rand
	table         map[string][]Candidate
	totals        map[string]int
	logger        *slog.Logger
}

// NewGenerator creates a Generator for the given model. The model is read
// once to build sorted candidate tables; it is never written.
func NewGenerator(m *Model, opts ...GeneratorOption) *Generator {
	options := &generatorOptions{
		weighted:      true,
		maxAttempts:   50,
		defaultMaxLen: 14,
	}
	for _, opt := range opts {
		opt(options)
	}

	// Candidate slices are sorted so that a fixed random source yields a
	// fixed word, independent of map iteration order.
	table := make(map[string][]Candidate, len(m.transitions))
	totals := make(map[string]int, len(m.transitions))
	for context := range m.transitions {
		candidates, total := m.Candidates(context)
		table[context] = candidates
		totals[context] = total
	}

	return &Generator{
		model:         m,
		weighted:      options.weighted,
		maxAttempts:   options.maxAttempts,
		defaultMaxLen: options.defaultMaxLen,
		rng:           options.rng,
		table:         table,
		totals:        totals,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Generator. By default, all logs are discarded.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// GenerateOne produces a single word whose rune length lies in
// [minLen, maxLen]. The maximum is a rough bound: a candidate that would
// overshoot it forces completion at the current length instead of being
// truncated mid-segment, so results may land under the bound but never over.
// If the minimum cannot be met within the attempt cap, it returns
// ErrUnsatisfiable.
func (g *Generator) GenerateOne(minLen, maxLen int) (string, error) {
	if minLen < 0 || maxLen < minLen {
		return "", fmt.Errorf("%w: min %d, max %d", ErrInvalidLengthRange, minLen, maxLen)
	}

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		word, ok := g.walk(minLen, maxLen)
		if ok {
			return word, nil
		}
	}

	g.logger.Debug("Generation attempts exhausted",
		slog.Int("min_length", minLen),
		slog.Int("max_length", maxLen),
		slog.Int("max_attempts", g.maxAttempts),
	)
	return "", fmt.Errorf("%w: no word of at least %d runes found in %d attempts", ErrUnsatisfiable, minLen, g.maxAttempts)
}

// Generate produces exactly n independently drawn words within the given
// length range, in generation order.
func (g *Generator) Generate(minLen, maxLen, n int) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("wordgen: word count must not be negative, got %d", n)
	}
	words := make([]string, 0, n)
	for range n {
		word, err := g.GenerateOne(minLen, maxLen)
		if err != nil {
			return nil, err
		}
		words = append(words, word)
	}
	return words, nil
}

// Words returns an endless sequence of words generated with the range
// (0, default max length) and the generator's weighted setting. The caller
// controls how many to take by stopping the iteration.
func (g *Generator) Words() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			// A minimum of zero is always satisfiable, so the draw cannot fail.
			word, err := g.GenerateOne(0, g.defaultMaxLen)
			if err != nil {
				return
			}
			if !yield(word) {
				return
			}
		}
	}
}

// walk performs one start-to-end pass over the transition table. The second
// return value reports whether the word satisfies minLen; a false result
// costs the caller one attempt.
func (g *Generator) walk(minLen, maxLen int) (string, bool) {
	var builder strings.Builder
	length := 0
	context := StartContext

	for {
		candidates := g.table[context]
		if len(candidates) == 0 {
			// Dead end in the table (possible after pruning); the word is
			// complete at its current length.
			return builder.String(), length >= minLen
		}

		segment, ok := g.sample(candidates, g.totals[context], length < minLen)
		if !ok {
			// Only the end marker remained while below the minimum; restart.
			return "", false
		}
		if segment == EndSegment {
			return builder.String(), true
		}

		segLen := utf8.RuneCountInString(segment)
		if length+segLen > maxLen {
			// Rough maximum: force completion rather than truncate mid-segment.
			return builder.String(), length >= minLen
		}

		builder.WriteString(segment)
		length += segLen
		context = segment
	}
}

// sample draws one candidate, weight-proportionally or uniformly depending on
// the generator's configuration. When excludeEnd is set the end marker is
// removed from the pool first; if nothing else remains, ok is false.
func (g *Generator) sample(candidates []Candidate, total int, excludeEnd bool) (segment string, ok bool) {
	pool := candidates
	if excludeEnd {
		pool = make([]Candidate, 0, len(candidates))
		total = 0
		for _, c := range candidates {
			if c.Segment != EndSegment {
				pool = append(pool, c)
				total += c.Weight
			}
		}
		if len(pool) == 0 || total == 0 {
			return "", false
		}
	}

	if !g.weighted {
		return pool[g.intN(len(pool))].Segment, true
	}

	draw := g.intN(total)
	for _, c := range pool {
		draw -= c.Weight
		if draw < 0 {
			return c.Segment, true
		}
	}
	return pool[len(pool)-1].Segment, true
}

func (g *Generator) intN(n int) int {
	if g.rng != nil {
		return g.rng.IntN(n)
	}
	return rand.IntN(n)
}
