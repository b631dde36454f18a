package ngram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ErrModelNotFound is returned by Store.Load when no model with the
// requested name has been saved.
var ErrModelNotFound = errors.New("model not found in store")

// ModelInfo holds the stored metadata for a saved model: its name and the
// configuration it was trained with.
type ModelInfo struct {
	Name     string
	Order    int
	MinCount int
}

// SetupSchema initializes the tables used by Store in the provided database.
// It should be called once before any other operation but is idempotent and
// safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS ngram_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL,
    min_count INTEGER NOT NULL
);
`
		schemaVocab = `
CREATE TABLE IF NOT EXISTS ngram_vocabulary (
    model_id INTEGER NOT NULL,
    token_text TEXT NOT NULL,
    PRIMARY KEY (model_id, token_text)
);
`
		schemaContexts = `
CREATE TABLE IF NOT EXISTS ngram_contexts (
    context_id INTEGER PRIMARY KEY,
    model_id INTEGER NOT NULL,
    context_text TEXT NOT NULL,
    UNIQUE (model_id, context_text)
);
`
		// position preserves each histogram's insertion order so a loaded
		// model samples exactly like the one that was saved.
		schemaTransitions = `
CREATE TABLE IF NOT EXISTS ngram_transitions (
    context_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    token_text TEXT NOT NULL,
    frequency INTEGER NOT NULL,
    PRIMARY KEY (context_id, position)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, schema := range []string{schemaModels, schemaVocab, schemaContexts, schemaTransitions} {
		if _, err = tx.Exec(schema); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Store persists trained models to a SQL database and loads them back. It
// holds the database connection and prepared statements for the hot paths.
type Store struct {
	db                 *sql.DB
	stmtGetModel       *sql.Stmt
	stmtListModels     *sql.Stmt
	stmtUpsertModel    *sql.Stmt
	stmtInsertVocab    *sql.Stmt
	stmtInsertContext  *sql.Stmt
	stmtInsertChain    *sql.Stmt
	stmtLoadVocab      *sql.Stmt
	stmtLoadChains     *sql.Stmt
	stmtDeleteChains   *sql.Stmt
	stmtDeleteContexts *sql.Stmt
	stmtDeleteVocab    *sql.Stmt
	stmtDeleteModel    *sql.Stmt
	logger             *slog.Logger
}

// NewStore creates a Store over the given database connection. It
// pre-compiles all necessary SQL statements, returning an error if any
// preparation fails. SetupSchema must have run on the database.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetModel, err := db.Prepare(`SELECT model_id, model_order, min_count FROM ngram_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtListModels, err := db.Prepare(`SELECT model_name, model_order, min_count FROM ngram_models ORDER BY model_name;`)
	if err != nil {
		return nil, err
	}

	stmtUpsertModel, err := db.Prepare(`
INSERT INTO ngram_models (model_name, model_order, min_count) VALUES (?, ?, ?)
ON CONFLICT(model_name) DO UPDATE SET model_order = excluded.model_order, min_count = excluded.min_count
RETURNING model_id;`)
	if err != nil {
		return nil, err
	}

	stmtInsertVocab, err := db.Prepare(`INSERT INTO ngram_vocabulary (model_id, token_text) VALUES (?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtInsertContext, err := db.Prepare(`INSERT INTO ngram_contexts (model_id, context_text) VALUES (?, ?) RETURNING context_id;`)
	if err != nil {
		return nil, err
	}

	stmtInsertChain, err := db.Prepare(`INSERT INTO ngram_transitions (context_id, position, token_text, frequency) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtLoadVocab, err := db.Prepare(`SELECT token_text FROM ngram_vocabulary WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtLoadChains, err := db.Prepare(`
SELECT c.context_text, t.token_text, t.frequency
FROM ngram_contexts c
JOIN ngram_transitions t ON t.context_id = c.context_id
WHERE c.model_id = ?
ORDER BY c.context_id, t.position;`)
	if err != nil {
		return nil, err
	}

	stmtDeleteChains, err := db.Prepare(`DELETE FROM ngram_transitions WHERE context_id IN (SELECT context_id FROM ngram_contexts WHERE model_id = ?);`)
	if err != nil {
		return nil, err
	}

	stmtDeleteContexts, err := db.Prepare(`DELETE FROM ngram_contexts WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtDeleteVocab, err := db.Prepare(`DELETE FROM ngram_vocabulary WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtDeleteModel, err := db.Prepare(`DELETE FROM ngram_models WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:                 db,
		stmtGetModel:       stmtGetModel,
		stmtListModels:     stmtListModels,
		stmtUpsertModel:    stmtUpsertModel,
		stmtInsertVocab:    stmtInsertVocab,
		stmtInsertContext:  stmtInsertContext,
		stmtInsertChain:    stmtInsertChain,
		stmtLoadVocab:      stmtLoadVocab,
		stmtLoadChains:     stmtLoadChains,
		stmtDeleteChains:   stmtDeleteChains,
		stmtDeleteContexts: stmtDeleteContexts,
		stmtDeleteVocab:    stmtDeleteVocab,
		stmtDeleteModel:    stmtDeleteModel,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store. It should be
// called when the Store is no longer needed to free up database resources.
func (s *Store) Close() {
	_ = s.stmtGetModel.Close()
	_ = s.stmtListModels.Close()
	_ = s.stmtUpsertModel.Close()
	_ = s.stmtInsertVocab.Close()
	_ = s.stmtInsertContext.Close()
	_ = s.stmtInsertChain.Close()
	_ = s.stmtLoadVocab.Close()
	_ = s.stmtLoadChains.Close()
	_ = s.stmtDeleteChains.Close()
	_ = s.stmtDeleteContexts.Close()
	_ = s.stmtDeleteVocab.Close()
	_ = s.stmtDeleteModel.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are
// discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Save writes a snapshot of the model to the database under the given name,
// replacing any previously saved model of that name. The entire operation is
// performed within a transaction.
func (s *Store) Save(ctx context.Context, name string, m *Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for save: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int64
	if err = tx.StmtContext(ctx, s.stmtUpsertModel).QueryRowContext(ctx, name, m.order, m.minCount).Scan(&modelID); err != nil {
		return fmt.Errorf("failed to upsert model '%s': %w", name, err)
	}

	// Replace semantics: clear any previous snapshot before inserting.
	for _, stmt := range []*sql.Stmt{s.stmtDeleteChains, s.stmtDeleteContexts, s.stmtDeleteVocab} {
		if _, err = tx.StmtContext(ctx, stmt).ExecContext(ctx, modelID); err != nil {
			return fmt.Errorf("failed to clear previous snapshot of '%s': %w", name, err)
		}
	}

	stmtVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	for token := range m.vocab {
		if _, err = stmtVocab.ExecContext(ctx, modelID, token); err != nil {
			return fmt.Errorf("failed to insert vocab token '%s': %w", token, err)
		}
	}

	stmtContext := tx.StmtContext(ctx, s.stmtInsertContext)
	stmtChain := tx.StmtContext(ctx, s.stmtInsertChain)
	var transitions int
	for key, h := range m.contexts {
		var contextID int64
		if err = stmtContext.QueryRowContext(ctx, modelID, key).Scan(&contextID); err != nil {
			return fmt.Errorf("failed to insert context '%s': %w", key, err)
		}
		for i, tc := range h.entries {
			if _, err = stmtChain.ExecContext(ctx, contextID, i, tc.Token, tc.Count); err != nil {
				return fmt.Errorf("failed to insert transition (%s -> %s): %w", key, tc.Token, err)
			}
			transitions++
		}
	}

	s.logger.InfoContext(ctx, "model saved",
		slog.String("model_name", name),
		slog.Int("vocab_size", len(m.vocab)),
		slog.Int("contexts", len(m.contexts)),
		slog.Int("transitions", transitions),
	)

	return tx.Commit()
}

// Load reads a previously saved model back from the database. The loaded
// model reproduces the saved one exactly, histogram order included, so
// seeded generation from it matches seeded generation from the original.
func (s *Store) Load(ctx context.Context, name string) (*Model, error) {
	var modelID int64
	var order, minCount int
	err := s.stmtGetModel.QueryRowContext(ctx, name).Scan(&modelID, &order, &minCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model '%s': %w", name, ErrModelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up model '%s': %w", name, err)
	}

	m, err := NewModel(order, minCount)
	if err != nil {
		return nil, fmt.Errorf("stored model '%s' has invalid configuration: %w", name, err)
	}

	vRows, err := s.stmtLoadVocab.QueryContext(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary for '%s': %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(vRows)
	for vRows.Next() {
		var token string
		if err = vRows.Scan(&token); err != nil {
			return nil, err
		}
		m.vocab[token] = struct{}{}
	}
	if err = vRows.Err(); err != nil {
		return nil, err
	}

	cRows, err := s.stmtLoadChains.QueryContext(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transitions for '%s': %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(cRows)
	for cRows.Next() {
		var contextText, token string
		var freq int
		if err = cRows.Scan(&contextText, &token, &freq); err != nil {
			return nil, err
		}
		h, ok := m.contexts[contextText]
		if !ok {
			h = newHistogram()
			m.contexts[contextText] = h
		}
		h.addN(token, freq)
	}
	if err = cRows.Err(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "model loaded",
		slog.String("model_name", name),
		slog.Int("model_order", order),
		slog.Int("contexts", len(m.contexts)),
	)

	return m, nil
}

// List returns the metadata of every saved model, ordered by name.
func (s *Store) List(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.stmtListModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var infos []ModelInfo
	for rows.Next() {
		var info ModelInfo
		if err = rows.Scan(&info.Name, &info.Order, &info.MinCount); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// Delete removes a saved model and all of its associated data from the
// database. Deleting a name that was never saved is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	var modelID int64
	var order, minCount int
	err := s.stmtGetModel.QueryRowContext(ctx, name).Scan(&modelID, &order, &minCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up model '%s': %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for delete: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, stmt := range []*sql.Stmt{s.stmtDeleteChains, s.stmtDeleteContexts, s.stmtDeleteVocab, s.stmtDeleteModel} {
		if _, err = tx.StmtContext(ctx, stmt).ExecContext(ctx, modelID); err != nil {
			return fmt.Errorf("failed to remove model '%s': %w", name, err)
		}
	}

	s.logger.InfoContext(ctx, "model removed",
		slog.String("model_name", name),
	)

	return tx.Commit()
}
