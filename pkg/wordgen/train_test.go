package wordgen

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestBuild(t *testing.T) {
	m := buildTestModel(t, []string{"cat", "car"})

	want := map[string]map[string]int{
		StartContext: {"ca": 2},
		"ca":         {"t": 1, "r": 1},
		"t":          {EndSegment: 1},
		"r":          {EndSegment: 1},
	}
	if !reflect.DeepEqual(m.transitions, want) {
		t.Errorf("transitions = %v, want %v", m.transitions, want)
	}

	stats := m.Stats()
	if stats.MinWordLen != 3 || stats.MaxWordLen != 3 {
		t.Errorf("word length bounds = [%d, %d], want [3, 3]", stats.MinWordLen, stats.MaxWordLen)
	}
	if stats.Starters != 1 {
		t.Errorf("Starters = %d, want 1", stats.Starters)
	}
	// Each word contributes 3 transitions: start -> ca -> t/r -> end.
	if stats.TotalWeight != 6 {
		t.Errorf("TotalWeight = %d, want 6", stats.TotalWeight)
	}
}

func TestBuildWeightSums(t *testing.T) {
	// The weight sum under each context must equal the number of times that
	// context was observed.
	m := buildTestModel(t, []string{"cat", "cat", "cot"})

	candidates, total := m.Candidates(StartContext)
	if total != 3 {
		t.Errorf("start context total = %d, want 3", total)
	}
	for _, c := range candidates {
		if c.Weight < 1 {
			t.Errorf("candidate %q has weight %d, want >= 1", c.Segment, c.Weight)
		}
	}

	if _, total := m.Candidates("ca"); total != 2 {
		t.Errorf("context 'ca' total = %d, want 2", total)
	}
}

func TestBuildSkipsBlankEntries(t *testing.T) {
	m := buildTestModel(t, []string{"", "  ", "cat", "\t"})
	if got := m.Stats().TotalWeight; got != 3 {
		t.Errorf("TotalWeight = %d, want 3 (only 'cat' should be counted)", got)
	}
}

func TestBuildEmptyDictionary(t *testing.T) {
	for _, words := range [][]string{{}, {"", "   "}} {
		if _, err := Build(seqOf(words...)); !errors.Is(err, ErrEmptyDictionary) {
			t.Errorf("Build(%q) error = %v, want ErrEmptyDictionary", words, err)
		}
	}
}

func TestBuildCaseFolding(t *testing.T) {
	folded := buildTestModel(t, []string{"CAT"})
	if _, total := folded.Candidates("ca"); total != 1 {
		t.Error("expected 'CAT' to be folded to lowercase by default")
	}

	raw := buildTestModel(t, []string{"CAT"}, WithCaseFolding(false))
	if _, total := raw.Candidates("CA"); total != 1 {
		t.Error("expected 'CAT' to keep its case with folding disabled")
	}
}

func TestBuildInvalidSegmentLength(t *testing.T) {
	if _, err := Build(seqOf("cat"), WithSegmentLength(0)); err == nil {
		t.Error("expected an error for segment length 0, got nil")
	}
}

func TestBuildDegenerateSingleWord(t *testing.T) {
	// A single word shorter than the segment length still yields a valid model.
	m := buildTestModel(t, []string{"a"})

	want := map[string]map[string]int{
		StartContext: {"a": 1},
		"a":          {EndSegment: 1},
	}
	if !reflect.DeepEqual(m.transitions, want) {
		t.Errorf("transitions = %v, want %v", m.transitions, want)
	}
}

func TestBuildSegmentLengthThree(t *testing.T) {
	m := buildTestModel(t, []string{"abcdef"}, WithSegmentLength(3))

	want := map[string]map[string]int{
		StartContext: {"abc": 1},
		"abc":        {"def": 1},
		"def":        {EndSegment: 1},
	}
	if !reflect.DeepEqual(m.transitions, want) {
		t.Errorf("transitions = %v, want %v", m.transitions, want)
	}
}

func TestAddMergesDictionaries(t *testing.T) {
	m := buildTestModel(t, []string{"cat"})
	if err := m.Add(seqOf("dog")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	starters, total := m.Candidates(StartContext)
	if total != 2 || len(starters) != 2 {
		t.Errorf("after Add: %d starters with total %d, want 2 and 2", len(starters), total)
	}
	if m.Stats().TotalWeight != 6 {
		t.Errorf("TotalWeight = %d, want 6", m.Stats().TotalWeight)
	}
}

func TestBuildFromReader(t *testing.T) {
	m, err := BuildFromReader(strings.NewReader("cat\n\ncar\n  \ncot\n"))
	if err != nil {
		t.Fatalf("BuildFromReader() error = %v", err)
	}
	if got := m.Stats().TotalWeight; got != 9 {
		t.Errorf("TotalWeight = %d, want 9 (three words of three transitions)", got)
	}
}

func TestBuildFromReaderEmpty(t *testing.T) {
	if _, err := BuildFromReader(strings.NewReader("\n\n")); !errors.Is(err, ErrEmptyDictionary) {
		t.Errorf("error = %v, want ErrEmptyDictionary", err)
	}
}
