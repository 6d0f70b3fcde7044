package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ninjaos/followup/internal/model"
)

func (s *SQLite) CreateExperience(ctx context.Context, userID string, e *model.Experience) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO experiences
			(id, user_id, contact_id, interaction_id, type, summary, valence,
			 magnitude, confidence, acknowledged, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, userID, e.ContactID, e.InteractionID, e.Type, e.Summary, e.Valence,
		e.Magnitude, e.Confidence, boolInt(e.Acknowledged),
		fmtTime(e.OccurredAt), fmtTime(e.CreatedAt))
	if IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLite) FindExperience(ctx context.Context, userID, contactID, expType, interactionID string) (*model.Experience, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, contact_id, interaction_id, type, summary, valence,
		       magnitude, confidence, acknowledged, occurred_at, created_at
		FROM experiences
		WHERE user_id = ? AND contact_id = ? AND type = ? AND interaction_id = ?`,
		userID, contactID, expType, interactionID)
	return scanExperience(row)
}

func (s *SQLite) ListExperiences(ctx context.Context, userID, contactID string) ([]model.Experience, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contact_id, interaction_id, type, summary, valence,
		       magnitude, confidence, acknowledged, occurred_at, created_at
		FROM experiences WHERE user_id = ? AND contact_id = ?
		ORDER BY occurred_at DESC`, userID, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiences: %w", err)
	}
	defer rows.Close()

	var out []model.Experience
	for rows.Next() {
		e, err := scanExperience(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanExperience(row rowScanner) (*model.Experience, error) {
	var e model.Experience
	var valence sql.NullString
	var acknowledged int
	var occurredAt, createdAt string
	err := row.Scan(&e.ID, &e.ContactID, &e.InteractionID, &e.Type, &e.Summary,
		&valence, &e.Magnitude, &e.Confidence, &acknowledged, &occurredAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan experience: %w", err)
	}
	e.Valence = valence.String
	e.Acknowledged = acknowledged != 0
	e.OccurredAt = parseTime(occurredAt)
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func (s *SQLite) CreateSignal(ctx context.Context, userID string, sig *model.FollowUpSignal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals
			(id, user_id, contact_id, interaction_id, experience_id, priority,
			 reasoning, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, userID, sig.ContactID, sig.InteractionID, sig.ExperienceID,
		sig.Priority, sig.Reasoning, sig.Status, fmtTime(sig.ExpiresAt), fmtTime(sig.CreatedAt))
	if IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLite) GetActiveSignal(ctx context.Context, userID, contactID string) (*model.FollowUpSignal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, contact_id, interaction_id, experience_id, priority,
		       reasoning, status, expires_at, created_at
		FROM signals
		WHERE user_id = ? AND contact_id = ? AND status IN ('pending', 'approved')
		LIMIT 1`, userID, contactID)

	var sig model.FollowUpSignal
	var experienceID sql.NullString
	var expiresAt, createdAt string
	err := row.Scan(&sig.ID, &sig.ContactID, &sig.InteractionID, &experienceID,
		&sig.Priority, &sig.Reasoning, &sig.Status, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active signal: %w", err)
	}
	sig.ExperienceID = experienceID.String
	sig.ExpiresAt = parseTime(expiresAt)
	sig.CreatedAt = parseTime(createdAt)
	return &sig, nil
}

// ExpireStaleSignals marks pending signals past their expiry as expired and
// returns how many rows changed.
func (s *SQLite) ExpireStaleSignals(ctx context.Context, userID string, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE signals SET status = 'expired'
		WHERE user_id = ? AND status = 'pending' AND expires_at < ?`,
		userID, fmtTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to expire signals: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLite) CreateDraft(ctx context.Context, userID string, d *model.GeneratedDraft) error {
	meta, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal draft metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts
			(id, user_id, contact_id, interaction_id, type, title, content, status, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, userID, d.ContactID, d.InteractionID, d.Type, d.Title, d.Content,
		d.Status, string(meta), fmtTime(d.CreatedAt))
	if IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLite) ListDrafts(ctx context.Context, userID, interactionID string) ([]model.GeneratedDraft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contact_id, interaction_id, type, title, content, status, metadata, created_at
		FROM drafts WHERE user_id = ? AND interaction_id = ? ORDER BY created_at`,
		userID, interactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var out []model.GeneratedDraft
	for rows.Next() {
		var d model.GeneratedDraft
		var title, meta sql.NullString
		var createdAt string
		if err := rows.Scan(&d.ID, &d.ContactID, &d.InteractionID, &d.Type,
			&title, &d.Content, &d.Status, &meta, &createdAt); err != nil {
			return nil, err
		}
		d.Title = title.String
		d.CreatedAt = parseTime(createdAt)
		if meta.Valid && meta.String != "" {
			_ = json.Unmarshal([]byte(meta.String), &d.Metadata)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpsertVoicePattern inserts a (category, value) pattern or, when the pair
// already exists for the user, bumps its frequency counter.
func (s *SQLite) UpsertVoicePattern(ctx context.Context, userID string, p *model.VoiceProfilePattern) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO voice_patterns (id, user_id, category, value, frequency, source, created_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (user_id, category, value)
		DO UPDATE SET frequency = frequency + 1`,
		p.ID, userID, p.Category, p.Value, p.Source, fmtTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert voice pattern: %w", err)
	}
	return nil
}

func (s *SQLite) ListVoicePatterns(ctx context.Context, userID string, categories ...string) ([]model.VoiceProfilePattern, error) {
	query := `
		SELECT id, category, value, frequency, source, created_at
		FROM voice_patterns WHERE user_id = ?`
	args := []any{userID}
	if len(categories) > 0 {
		query += " AND category IN (?" + strings.Repeat(",?", len(categories)-1) + ")"
		for _, c := range categories {
			args = append(args, c)
		}
	}
	query += " ORDER BY frequency DESC, category"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list voice patterns: %w", err)
	}
	defer rows.Close()

	var out []model.VoiceProfilePattern
	for rows.Next() {
		var p model.VoiceProfilePattern
		var source sql.NullString
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Category, &p.Value, &p.Frequency, &source, &createdAt); err != nil {
			return nil, err
		}
		p.Source = source.String
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) GetFeedback(ctx context.Context, userID, id string) (*model.DraftFeedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, draft_id, original_content, edited_content, processed, learned_insights, created_at
		FROM draft_feedback WHERE user_id = ? AND id = ?`, userID, id)
	return scanFeedback(row)
}

// CreateFeedback exists for the review UI side and for tests.
func (s *SQLite) CreateFeedback(ctx context.Context, userID string, fb *model.DraftFeedback) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO draft_feedback
			(id, user_id, draft_id, original_content, edited_content, processed, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		fb.ID, userID, fb.DraftID, fb.OriginalContent, fb.EditedContent, fmtTime(fb.CreatedAt))
	if IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLite) ListUnprocessedFeedback(ctx context.Context, userID string, limit int) ([]model.DraftFeedback, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, draft_id, original_content, edited_content, processed, learned_insights, created_at
		FROM draft_feedback WHERE user_id = ? AND processed = 0
		ORDER BY created_at LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed feedback: %w", err)
	}
	defer rows.Close()

	var out []model.DraftFeedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *fb)
	}
	return out, rows.Err()
}

func (s *SQLite) MarkFeedbackProcessed(ctx context.Context, userID, id string, insights json.RawMessage) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE draft_feedback SET processed = 1, learned_insights = ?
		WHERE user_id = ? AND id = ?`, string(insights), userID, id)
	if err != nil {
		return fmt.Errorf("failed to mark feedback processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFeedback(row rowScanner) (*model.DraftFeedback, error) {
	var fb model.DraftFeedback
	var processed int
	var insights sql.NullString
	var createdAt string
	err := row.Scan(&fb.ID, &fb.DraftID, &fb.OriginalContent, &fb.EditedContent,
		&processed, &insights, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan feedback: %w", err)
	}
	fb.Processed = processed != 0
	if insights.Valid && insights.String != "" {
		fb.LearnedInsights = json.RawMessage(insights.String)
	}
	fb.CreatedAt = parseTime(createdAt)
	return &fb, nil
}
