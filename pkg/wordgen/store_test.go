package wordgen

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	m := buildTestModel(t, englishWords)
	if err := s.SaveModel(ctx, "english", m); err != nil {
		t.Fatalf("SaveModel() failed: %v", err)
	}

	loaded, err := s.LoadModel(ctx, "english")
	if err != nil {
		t.Fatalf("LoadModel() failed: %v", err)
	}

	if !reflect.DeepEqual(loaded.transitions, m.transitions) {
		t.Error("loaded transitions differ from the saved model")
	}
	if loaded.Stats() != m.Stats() {
		t.Errorf("stats = %+v, want %+v", loaded.Stats(), m.Stats())
	}

	// The stored model must generate identically for the same draws.
	g1 := NewGenerator(m, WithRand(newTestRand(42)))
	g2 := NewGenerator(loaded, WithRand(newTestRand(42)))
	for i := 0; i < 10; i++ {
		w1, err1 := g1.GenerateOne(2, 10)
		w2, err2 := g2.GenerateOne(2, 10)
		if err1 != nil || err2 != nil {
			t.Fatalf("GenerateOne() errors = %v, %v", err1, err2)
		}
		if w1 != w2 {
			t.Fatalf("draw %d: original produced %q, stored produced %q", i, w1, w2)
		}
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	first := buildTestModel(t, []string{"cat"})
	second := buildTestModel(t, []string{"dog"}, WithSegmentLength(1))

	if err := s.SaveModel(ctx, "pets", first); err != nil {
		t.Fatalf("SaveModel() failed: %v", err)
	}
	if err := s.SaveModel(ctx, "pets", second); err != nil {
		t.Fatalf("second SaveModel() failed: %v", err)
	}

	loaded, err := s.LoadModel(ctx, "pets")
	if err != nil {
		t.Fatalf("LoadModel() failed: %v", err)
	}
	if loaded.SegmentLength() != 1 {
		t.Errorf("segment length = %d, want 1 (the overwriting model's)", loaded.SegmentLength())
	}
	if !reflect.DeepEqual(loaded.transitions, second.transitions) {
		t.Error("loaded transitions differ from the overwriting model")
	}
}

func TestStoreModelMetas(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	_ = s.SaveModel(ctx, "birds", buildTestModel(t, []string{"wren", "crow"}))
	_ = s.SaveModel(ctx, "animals", buildTestModel(t, []string{"cat", "horse"}, WithSegmentLength(3)))

	metas, err := s.ModelMetas(ctx)
	if err != nil {
		t.Fatalf("ModelMetas() failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d models, want 2", len(metas))
	}
	// Ordered by name.
	if metas[0].Name != "animals" || metas[1].Name != "birds" {
		t.Errorf("model order = [%s, %s], want [animals, birds]", metas[0].Name, metas[1].Name)
	}
	if metas[0].SegmentLength != 3 {
		t.Errorf("animals segment length = %d, want 3", metas[0].SegmentLength)
	}
	if metas[0].MinWordLen != 3 || metas[0].MaxWordLen != 5 {
		t.Errorf("animals word bounds = [%d, %d], want [3, 5]", metas[0].MinWordLen, metas[0].MaxWordLen)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	_, s := setupTestStore(t)

	_, err := s.LoadModel(context.Background(), "nonexistent")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("LoadModel() error = %v, want sql.ErrNoRows", err)
	}
}

func TestStoreDeleteModel(t *testing.T) {
	db, s := setupTestStore(t)
	ctx := context.Background()

	_ = s.SaveModel(ctx, "to_delete", buildTestModel(t, []string{"cat"}))
	_ = s.SaveModel(ctx, "to_keep", buildTestModel(t, []string{"dog"}))

	if err := s.DeleteModel(ctx, "to_delete"); err != nil {
		t.Fatalf("DeleteModel() failed: %v", err)
	}

	if _, err := s.LoadModel(ctx, "to_delete"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows for deleted model, got %v", err)
	}

	// The other model's transitions must survive.
	var count int
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM wordgen_transitions").Scan(&count)
	if count == 0 {
		t.Error("expected transitions for the kept model to exist, but found 0")
	}

	// Deleting a missing model is a no-op.
	if err := s.DeleteModel(ctx, "never_existed"); err != nil {
		t.Errorf("DeleteModel() on a missing model = %v, want nil", err)
	}
}

func TestStorePruneModel(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	// ab -> cd and cd -> <EOW> carry weight 1; everything else carries 2+.
	m := buildTestModel(t, []string{"abcd", "ab", "ab"})
	if err := s.SaveModel(ctx, "pruned", m); err != nil {
		t.Fatalf("SaveModel() failed: %v", err)
	}

	removed, err := s.PruneModel(ctx, "pruned", 2)
	if err != nil {
		t.Fatalf("PruneModel() failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("PruneModel() removed %d rows, want 2", removed)
	}

	loaded, err := s.LoadModel(ctx, "pruned")
	if err != nil {
		t.Fatalf("LoadModel() after prune failed: %v", err)
	}
	if _, total := loaded.Candidates("cd"); total != 0 {
		t.Error("pruned context 'cd' should not survive the round trip")
	}
}
