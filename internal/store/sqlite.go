// Package store persists the relationship record behind the pipeline.
//
// The implementation uses modernc.org/sqlite (pure Go, no CGo). The two
// invariants the pipeline cares about, one experience per (contact, type,
// interaction) and one active signal per contact, are backed by unique
// indexes so a concurrent check-then-insert cannot violate them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ninjaos/followup/internal/model"
)

type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
// Use ":memory:" for tests.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", path, err)
	}
	// SQLite handles one writer at a time; serialize access through a
	// single connection so concurrent pipeline calls queue instead of
	// failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func marshalStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalStrings(v sql.NullString) []string {
	if !v.Valid || v.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil
	}
	return out
}

func (s *SQLite) GetInteraction(ctx context.Context, userID, id string) (*model.Interaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, contact_id, type, title, transcript, summary,
		       occurred_at, created_at, deleted_at, extracted_data
		FROM interactions WHERE user_id = ? AND id = ?`, userID, id)

	var in model.Interaction
	var contactID, title, transcript, summary, deletedAt, extracted sql.NullString
	var occurredAt, createdAt string
	err := row.Scan(&in.ID, &contactID, &in.Type, &title, &transcript, &summary,
		&occurredAt, &createdAt, &deletedAt, &extracted)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load interaction %s: %w", id, err)
	}

	in.ContactID = contactID.String
	in.Title = title.String
	in.Transcript = transcript.String
	in.Summary = summary.String
	in.OccurredAt = parseTime(occurredAt)
	in.CreatedAt = parseTime(createdAt)
	if deletedAt.Valid {
		t := parseTime(deletedAt.String)
		in.DeletedAt = &t
	}
	if extracted.Valid && extracted.String != "" {
		in.ExtractedData = json.RawMessage(extracted.String)
	}
	return &in, nil
}

// CreateInteraction exists for the ingestion side and for tests; the
// pipeline itself only reads and annotates interactions.
func (s *SQLite) CreateInteraction(ctx context.Context, userID string, in *model.Interaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions
			(id, user_id, contact_id, type, title, transcript, summary, occurred_at, created_at, extracted_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, userID, in.ContactID, in.Type, in.Title, in.Transcript, in.Summary,
		fmtTime(in.OccurredAt), fmtTime(in.CreatedAt), string(in.ExtractedData))
	if IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLite) SetExtractedData(ctx context.Context, userID, id string, result model.ExtractionResult) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal extraction result: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE interactions SET extracted_data = ? WHERE user_id = ? AND id = ?",
		string(blob), userID, id)
	if err != nil {
		return fmt.Errorf("failed to store extraction result for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteInteraction marks an interaction deleted without dropping the
// row; the pipeline and the unprocessed listing both honor the marker.
func (s *SQLite) SoftDeleteInteraction(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE interactions SET deleted_at = ? WHERE user_id = ? AND id = ? AND deleted_at IS NULL",
		fmtTime(time.Now()), userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete interaction %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) SetInteractionSummary(ctx context.Context, userID, id, summary string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE interactions SET summary = ? WHERE user_id = ? AND id = ?",
		summary, userID, id)
	return err
}

func (s *SQLite) ListUnprocessed(ctx context.Context, userID string, limit int) ([]model.Interaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM interactions
		WHERE user_id = ? AND deleted_at IS NULL
		  AND (extracted_data IS NULL OR extracted_data = ''
		       OR json_extract(extracted_data, '$.status') != 'completed')
		ORDER BY occurred_at ASC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed interactions: %w", err)
	}
	defer rows.Close()

	var out []model.Interaction
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		in, err := s.GetInteraction(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

func (s *SQLite) GetPerson(ctx context.Context, userID, id string) (*model.Person, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, segment, family, occupation, recreation, dreams,
		       needs, offers, profession, notes, active_deal, created_at, updated_at
		FROM persons WHERE user_id = ? AND id = ?`, userID, id)
	return scanPerson(row)
}

func (s *SQLite) CreatePerson(ctx context.Context, userID string, p *model.Person) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO persons
			(id, user_id, name, segment, family, occupation, recreation, dreams,
			 needs, offers, profession, notes, active_deal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, userID, p.Name, p.Segment, p.Family, p.Occupation, p.Recreation, p.Dreams,
		marshalStrings(p.Needs), marshalStrings(p.Offers), p.Profession, p.Notes,
		boolInt(p.ActiveDeal), fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt))
	if IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLite) UpdatePerson(ctx context.Context, userID string, p *model.Person) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE persons SET name = ?, segment = ?, family = ?, occupation = ?,
			recreation = ?, dreams = ?, needs = ?, offers = ?, profession = ?,
			notes = ?, active_deal = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		p.Name, p.Segment, p.Family, p.Occupation, p.Recreation, p.Dreams,
		marshalStrings(p.Needs), marshalStrings(p.Offers), p.Profession, p.Notes,
		boolInt(p.ActiveDeal), fmtTime(time.Now()), userID, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update person %s: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) ListPersons(ctx context.Context, userID string) ([]model.Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, segment, family, occupation, recreation, dreams,
		       needs, offers, profession, notes, active_deal, created_at, updated_at
		FROM persons WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	defer rows.Close()

	var out []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*model.Person, error) {
	var p model.Person
	var family, occupation, recreation, dreams, needs, offers, profession, notes sql.NullString
	var activeDeal int
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &p.Segment, &family, &occupation, &recreation,
		&dreams, &needs, &offers, &profession, &notes, &activeDeal, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan person: %w", err)
	}
	p.Family = family.String
	p.Occupation = occupation.String
	p.Recreation = recreation.String
	p.Dreams = dreams.String
	p.Needs = unmarshalStrings(needs)
	p.Offers = unmarshalStrings(offers)
	p.Profession = profession.String
	p.Notes = notes.String
	p.ActiveDeal = activeDeal != 0
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
