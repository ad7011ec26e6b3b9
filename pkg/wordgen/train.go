package wordgen

import (
	"bufio"
	"fmt"
	"io"
	"iter"
)

// buildOptions Is used by Build to configure model construction.
type buildOptions struct {
	segmentLength int
	foldCase      bool
}

// BuildOption is a function that configures model construction. It's used as a
// variadic argument to Build and BuildFromReader.
type BuildOption func(*buildOptions)

// WithSegmentLength sets the segment window size in runes. Smaller values give
// more chaotic output, larger values reproduce longer stretches of the source
// words. Default: DefaultSegmentLength.
func WithSegmentLength(k int) BuildOption {
	return func(o *buildOptions) { o.segmentLength = k }
}

// WithCaseFolding specifies whether dictionary words are folded to lowercase
// before segmentation. Default: true.
func WithCaseFolding(fold bool) BuildOption {
	return func(o *buildOptions) { o.foldCase = fold }
}

// Build constructs a Model from a sequence of dictionary words. Empty and
// whitespace-only entries are skipped; if no usable words remain, it returns
// ErrEmptyDictionary. Build is a pure function of its input: it performs no
// I/O and touches no shared state.
func Build(words iter.Seq[string], opts ...BuildOption) (*Model, error) {
	options := &buildOptions{
		segmentLength: DefaultSegmentLength,
		foldCase:      true,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.segmentLength < 1 {
		return nil, fmt.Errorf("wordgen: segment length must be at least 1, got %d", options.segmentLength)
	}

	m := &Model{
		segmentLength: options.segmentLength,
		foldCase:      options.foldCase,
		transitions:   make(map[string]map[string]int),
	}
	if err := m.Add(words); err != nil {
		return nil, err
	}
	return m, nil
}

// BuildFromReader constructs a Model from newline-delimited dictionary text,
// one word per line. Blank lines are ignored.
func BuildFromReader(r io.Reader, opts ...BuildOption) (*Model, error) {
	scanner := bufio.NewScanner(r)
	m, buildErr := Build(func(yield func(string) bool) {
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, opts...)
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("wordgen: could not read dictionary: %w", err)
	}
	if buildErr != nil {
		return nil, buildErr
	}
	return m, nil
}
