package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dtnitsch/llm-web-digest/models"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the record store handle. It keeps no connection open: every
// operation opens the database, runs in one transaction and closes it again,
// whether the operation succeeds or not.
type Store struct {
	path   string
	logger *slog.Logger
}

// Connect returns a Store for dbPath, creating the database and its schema on
// first use.
func Connect(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: dbPath, logger: logger}
	// Touch the database once so open and schema errors surface here.
	if err := s.withTx(ctx, "connect", func(*sql.Tx) error { return nil }); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// withTx is the scoped acquisition used by every operation.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) (err error) {
	database, err := Open(ctx, s.path)
	if err != nil {
		return &models.PersistenceError{Op: op, Err: err}
	}
	defer func() {
		if cerr := database.Close(); cerr != nil && err == nil {
			err = &models.PersistenceError{Op: op, Err: fmt.Errorf("failed to close database: %w", cerr)}
		}
	}()

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return &models.PersistenceError{Op: op, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback() // Rollback error less important than operation error
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &models.PersistenceError{Op: op, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &models.PersistenceError{Op: op, Err: fmt.Errorf("failed to commit: %w", err)}
	}
	return nil
}

// Save inserts a new record and returns its assigned id. Any id already set
// on rec is ignored.
func (s *Store) Save(ctx context.Context, rec models.Record) (int64, error) {
	var id int64
	err := s.withTx(ctx, "save", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO records (title, url, date, timestamp, summary, keywords, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rec.Title, rec.URL, rec.Date, rec.Timestamp, rec.Summary, rec.Keywords, rec.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get record ID: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("record saved", "id", id, "url", rec.URL)
	return id, nil
}

// GetAll returns every record in insertion order.
func (s *Store) GetAll(ctx context.Context) ([]models.Record, error) {
	return s.query(ctx, "get all", "ORDER BY id")
}

// GetByID returns one record.
func (s *Store) GetByID(ctx context.Context, id int64) (models.Record, error) {
	records, err := s.query(ctx, "get", "WHERE id = ?", id)
	if err != nil {
		return models.Record{}, err
	}
	if len(records) == 0 {
		return models.Record{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return records[0], nil
}

// FindByURL returns the records captured from url, oldest first.
func (s *Store) FindByURL(ctx context.Context, url string) ([]models.Record, error) {
	return s.query(ctx, "find by url", "WHERE url = ? ORDER BY id", url)
}

// FindByDate returns the records captured on date (models.DateLayout).
func (s *Store) FindByDate(ctx context.Context, date string) ([]models.Record, error) {
	return s.query(ctx, "find by date", "WHERE date = ? ORDER BY id", date)
}

// Search returns records where term occurs in any text field, newest first.
func (s *Store) Search(ctx context.Context, term string) ([]models.Record, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		records, err := s.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		models.SortNewestFirst(records)
		return records, nil
	}

	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	return s.query(ctx, "search", `
		WHERE lower(title) LIKE ?1 ESCAPE '\'
		   OR lower(url) LIKE ?1 ESCAPE '\'
		   OR lower(date) LIKE ?1 ESCAPE '\'
		   OR lower(summary) LIKE ?1 ESCAPE '\'
		   OR lower(keywords) LIKE ?1 ESCAPE '\'
		   OR lower(notes) LIKE ?1 ESCAPE '\'
		ORDER BY timestamp DESC, id DESC`, pattern)
}

// UpdateNotes replaces the notes of one record. Notes are the only field
// that changes after a record is stored.
func (s *Store) UpdateNotes(ctx context.Context, id int64, notes string) error {
	return s.withTx(ctx, "update notes", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "UPDATE records SET notes = ? WHERE id = ?", notes, id)
		if err != nil {
			return fmt.Errorf("failed to update notes: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check update: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil
	})
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.withTx(ctx, "count", func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n)
	})
	return n, err
}

// Clear deletes every record. It cannot be undone.
func (s *Store) Clear(ctx context.Context) error {
	err := s.withTx(ctx, "clear", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
			return fmt.Errorf("failed to delete records: %w", err)
		}
		return nil
	})
	if err == nil {
		s.logger.Info("record store cleared", "path", s.path)
	}
	return err
}

func (s *Store) query(ctx context.Context, op, clause string, args ...any) ([]models.Record, error) {
	var records []models.Record
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, title, url, date, timestamp, summary, keywords, notes
			FROM records `+clause, args...)
		if err != nil {
			return fmt.Errorf("failed to query records: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var r models.Record
			if err := rows.Scan(&r.ID, &r.Title, &r.URL, &r.Date, &r.Timestamp, &r.Summary, &r.Keywords, &r.Notes); err != nil {
				return fmt.Errorf("failed to scan record: %w", err)
			}
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
