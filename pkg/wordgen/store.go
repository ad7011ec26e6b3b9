package wordgen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ModelMeta holds the stored metadata for a named model.
type ModelMeta struct {
	Name          string
	SegmentLength int
	MinWordLen    int
	MaxWordLen    int
}

// SetupSchema initializes the tables used by the Store in the provided
// database. It should be called once on a new database before any other
// operations are performed. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS wordgen_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    segment_length INTEGER NOT NULL,
    fold_case INTEGER NOT NULL DEFAULT 1,
    min_word_length INTEGER NOT NULL DEFAULT 0,
    max_word_length INTEGER NOT NULL DEFAULT 0
);
`
		schemaTransitions = `
CREATE TABLE IF NOT EXISTS wordgen_transitions (
    model_id INTEGER NOT NULL,
    context TEXT NOT NULL,
    candidate TEXT NOT NULL,
    weight INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, context, candidate)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing. If it fails, this will clean up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}

	if _, err = tx.Exec(schemaTransitions); err != nil {
		return fmt.Errorf("could not create transitions schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store persists named models in a SQL database, so expensive dictionaries
// can be segmented once and reused across runs. It holds prepared statements
// for the operations it performs.
type Store struct {
	db                 *sql.DB
	stmtGetModel       *sql.Stmt
	stmtListModels     *sql.Stmt
	stmtUpsertModel    *sql.Stmt
	stmtDeleteModel    *sql.Stmt
	stmtGetTransitions *sql.Stmt
	stmtAddTransition  *sql.Stmt
	stmtClearModel     *sql.Stmt
	stmtPruneModel     *sql.Stmt
	logger             *slog.Logger
}

// NewStore creates a Store over the given database connection, pre-compiling
// all necessary SQL statements. SetupSchema must have been run on the
// database first.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetModel, err := db.Prepare(`SELECT model_id, segment_length, fold_case, min_word_length, max_word_length FROM wordgen_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtListModels, err := db.Prepare(`SELECT model_name, segment_length, min_word_length, max_word_length FROM wordgen_models ORDER BY model_name;`)
	if err != nil {
		return nil, err
	}

	stmtUpsertModel, err := db.Prepare(`
INSERT INTO wordgen_models (model_name, segment_length, fold_case, min_word_length, max_word_length) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(model_name) DO UPDATE SET segment_length = excluded.segment_length, fold_case = excluded.fold_case,
    min_word_length = excluded.min_word_length, max_word_length = excluded.max_word_length
RETURNING model_id;`)
	if err != nil {
		return nil, err
	}

	stmtDeleteModel, err := db.Prepare(`DELETE FROM wordgen_models WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetTransitions, err := db.Prepare(`SELECT context, candidate, weight FROM wordgen_transitions WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtAddTransition, err := db.Prepare(`INSERT INTO wordgen_transitions (model_id, context, candidate, weight) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtClearModel, err := db.Prepare(`DELETE FROM wordgen_transitions WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtPruneModel, err := db.Prepare(`DELETE FROM wordgen_transitions WHERE model_id = ? AND weight < ?;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:                 db,
		stmtGetModel:       stmtGetModel,
		stmtListModels:     stmtListModels,
		stmtUpsertModel:    stmtUpsertModel,
		stmtDeleteModel:    stmtDeleteModel,
		stmtGetTransitions: stmtGetTransitions,
		stmtAddTransition:  stmtAddTransition,
		stmtClearModel:     stmtClearModel,
		stmtPruneModel:     stmtPruneModel,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtGetModel.Close()
	_ = s.stmtListModels.Close()
	_ = s.stmtUpsertModel.Close()
	_ = s.stmtDeleteModel.Close()
	_ = s.stmtGetTransitions.Close()
	_ = s.stmtAddTransition.Close()
	_ = s.stmtClearModel.Close()
	_ = s.stmtPruneModel.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SaveModel persists a model under the given name, replacing any existing
// model with that name. The operation is performed within a transaction.
func (s *Store) SaveModel(ctx context.Context, name string, m *Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	foldCase := 0
	if m.foldCase {
		foldCase = 1
	}

	var modelID int
	err = tx.StmtContext(ctx, s.stmtUpsertModel).
		QueryRowContext(ctx, name, m.segmentLength, foldCase, m.minWordLen, m.maxWordLen).
		Scan(&modelID)
	if err != nil {
		return fmt.Errorf("could not upsert model %q: %w", name, err)
	}

	if _, err = tx.StmtContext(ctx, s.stmtClearModel).ExecContext(ctx, modelID); err != nil {
		return fmt.Errorf("could not clear transitions for model %q: %w", name, err)
	}

	stmtAdd := tx.StmtContext(ctx, s.stmtAddTransition)
	links := 0
	for context, weights := range m.transitions {
		for segment, weight := range weights {
			if _, err = stmtAdd.ExecContext(ctx, modelID, context, segment, weight); err != nil {
				return fmt.Errorf("could not insert transition %q -> %q: %w", context, segment, err)
			}
			links++
		}
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
		slog.Int("transitions_saved", links),
	)

	return tx.Commit()
}

// LoadModel reconstructs the named model from the database. It returns
// sql.ErrNoRows (wrapped) if no model with that name exists, and
// ErrMalformedSnapshot if the stored rows violate the model invariants.
func (s *Store) LoadModel(ctx context.Context, name string) (*Model, error) {
	var modelID, segmentLength, foldCase, minWordLen, maxWordLen int
	err := s.stmtGetModel.QueryRowContext(ctx, name).
		Scan(&modelID, &segmentLength, &foldCase, &minWordLen, &maxWordLen)
	if err != nil {
		return nil, fmt.Errorf("could not look up model %q: %w", name, err)
	}

	rows, err := s.stmtGetTransitions.QueryContext(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("could not query transitions for model %q: %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	transitions := make(map[string]map[string]int)
	totalWeight := 0
	for rows.Next() {
		var context, candidate string
		var weight int
		if err = rows.Scan(&context, &candidate, &weight); err != nil {
			return nil, err
		}
		if weight < 0 {
			return nil, fmt.Errorf("%w: negative weight %d for %q -> %q", ErrMalformedSnapshot, weight, context, candidate)
		}
		weights := transitions[context]
		if weights == nil {
			weights = make(map[string]int)
			transitions[context] = weights
		}
		weights[candidate] = weight
		totalWeight += weight
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(transitions[StartContext]) == 0 {
		return nil, fmt.Errorf("%w: model %q has no start-of-word context", ErrMalformedSnapshot, name)
	}

	s.logger.InfoContext(ctx, "Model loaded",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
		slog.Int("contexts_loaded", len(transitions)),
	)

	return &Model{
		segmentLength: segmentLength,
		foldCase:      foldCase != 0,
		transitions:   transitions,
		minWordLen:    minWordLen,
		maxWordLen:    maxWordLen,
		totalWeight:   totalWeight,
	}, nil
}

// ModelMetas retrieves metadata for all stored models, ordered by name.
func (s *Store) ModelMetas(ctx context.Context) ([]ModelMeta, error) {
	rows, err := s.stmtListModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var metas []ModelMeta
	for rows.Next() {
		var meta ModelMeta
		if err = rows.Scan(&meta.Name, &meta.SegmentLength, &meta.MinWordLen, &meta.MaxWordLen); err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return metas, nil
}

// modelID resolves a model name to its row ID.
func (s *Store) modelID(ctx context.Context, name string) (int, error) {
	var id, segmentLength, foldCase, minWordLen, maxWordLen int
	err := s.stmtGetModel.QueryRowContext(ctx, name).
		Scan(&id, &segmentLength, &foldCase, &minWordLen, &maxWordLen)
	return id, err
}

// DeleteModel removes a model and all of its transitions from the database.
// Deleting a model that does not exist is not an error.
func (s *Store) DeleteModel(ctx context.Context, name string) error {
	modelID, err := s.modelID(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("could not look up model %q: %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.StmtContext(ctx, s.stmtClearModel).ExecContext(ctx, modelID); err != nil {
		return fmt.Errorf("could not remove transitions for model %q: %w", name, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtDeleteModel).ExecContext(ctx, modelID); err != nil {
		return fmt.Errorf("could not remove model %q: %w", name, err)
	}

	s.logger.InfoContext(ctx, "Model removed",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
	)

	return tx.Commit()
}

// PruneModel removes all stored transitions for the named model with a weight
// below minWeight, returning the number of rows removed. Emptied contexts
// disappear with their rows.
func (s *Store) PruneModel(ctx context.Context, name string, minWeight int) (int64, error) {
	modelID, err := s.modelID(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("could not look up model %q: %w", name, err)
	}

	res, err := s.stmtPruneModel.ExecContext(ctx, modelID, minWeight)
	if err != nil {
		return 0, fmt.Errorf("could not prune model %q: %w", name, err)
	}
	removed, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Model pruned",
		slog.String("model_name", name),
		slog.Int("min_weight", minWeight),
		slog.Int64("transitions_removed", removed),
	)
	return removed, nil
}
