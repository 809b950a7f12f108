package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SQL keeps documents as JSON rows in the 'documents' table
// (see database.EnsureSchema). Binary values are stored base64-encoded.
type SQL struct {
	db *sql.DB
}

func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) Create(ctx context.Context, coll Collection, doc Document) (Document, error) {
	stored, id, err := withID(coll, doc)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE body = VALUES(body)`,
		string(coll), id, body)
	if err != nil {
		return nil, fmt.Errorf("mysql insert %s: %w", coll, err)
	}
	return stored, nil
}

func (s *SQL) Get(ctx context.Context, coll Collection, id string) (Document, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		string(coll), id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mysql get %s/%s: %w", coll, id, err)
	}
	return decodeRaw(body)
}

func (s *SQL) List(ctx context.Context, coll Collection) ([]Document, error) {
	return s.query(ctx,
		`SELECT body FROM documents WHERE collection = ? ORDER BY id`,
		string(coll))
}

func (s *SQL) FindByAttribute(ctx context.Context, coll Collection, attr string, value any) ([]Document, error) {
	want, err := normalize(value)
	if err != nil {
		return nil, err
	}
	text, ok := scalarString(want)
	if !ok {
		return nil, fmt.Errorf("mysql find %s: attribute value must be a scalar", coll)
	}
	// JSON_UNQUOTE compares as text; the exact match is rechecked below.
	path := `$."` + strings.ReplaceAll(attr, `"`, `\"`) + `"`
	docs, err := s.query(ctx,
		`SELECT body FROM documents
		 WHERE collection = ? AND JSON_UNQUOTE(JSON_EXTRACT(body, ?)) = ?
		 ORDER BY id`,
		string(coll), path, text)
	if err != nil {
		return nil, err
	}
	out := docs[:0]
	for _, d := range docs {
		if valuesEqual(d[attr], want) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *SQL) query(ctx context.Context, q string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql query: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		doc, err := decodeRaw(body)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *SQL) Update(ctx context.Context, coll Collection, id string, fields Document) (Document, error) {
	return s.update(ctx, coll, id, fields, nil)
}

func (s *SQL) UpdateIf(ctx context.Context, coll Collection, id string, fields Document, cond Condition) (Document, error) {
	return s.update(ctx, coll, id, fields, &cond)
}

// update locks the row, merges the fields and writes the document back
// inside one transaction.
func (s *SQL) update(ctx context.Context, coll Collection, id string, fields Document, cond *Condition) (Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var body []byte
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ? FOR UPDATE`,
		string(coll), id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mysql lock %s/%s: %w", coll, id, err)
	}
	current, err := decodeRaw(body)
	if err != nil {
		return nil, err
	}

	if cond != nil {
		want, err := normalize(cond.Equals)
		if err != nil {
			return nil, err
		}
		if !valuesEqual(current[cond.Attr], want) {
			return nil, ErrConditionFailed
		}
	}

	next, err := merge(coll, current, fields)
	if err != nil {
		return nil, err
	}
	newBody, err := json.Marshal(next)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`,
		newBody, string(coll), id); err != nil {
		return nil, fmt.Errorf("mysql update %s/%s: %w", coll, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *SQL) Delete(ctx context.Context, coll Collection, id string) (Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var body []byte
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ? FOR UPDATE`,
		string(coll), id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mysql lock %s/%s: %w", coll, id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		string(coll), id); err != nil {
		return nil, fmt.Errorf("mysql delete %s/%s: %w", coll, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return decodeRaw(body)
}
