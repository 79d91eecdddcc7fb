// Package store implements owner-scoped persistence for users and notes.
// Every note operation filters on the owning user id, so a caller can
// never observe another owner's records.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leafnote/leafnote-server/internal/models"
)

// CreateNoteInput is the payload for creating a note.
type CreateNoteInput struct {
	Title   string   `json:"title" validate:"required"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags"`
}

// Normalize trims surrounding whitespace the way the stored record should
// carry it. Tags default to an empty sequence.
func (in *CreateNoteInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.Tags == nil {
		in.Tags = []string{}
	}
	for i, tag := range in.Tags {
		in.Tags[i] = strings.TrimSpace(tag)
	}
}

// UpdateNoteInput is a partial update: nil fields are left untouched.
type UpdateNoteInput struct {
	Title    *string   `json:"title" validate:"omitnil,required"`
	Content  *string   `json:"content" validate:"omitnil,required"`
	Tags     *[]string `json:"tags"`
	IsPinned *bool     `json:"isPinned"`
}

func (in *UpdateNoteInput) Normalize() {
	if in.Title != nil {
		*in.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		*in.Content = strings.TrimSpace(*in.Content)
	}
	if in.Tags != nil {
		for i, tag := range *in.Tags {
			(*in.Tags)[i] = strings.TrimSpace(tag)
		}
	}
}

// NoteQuery is the explicit listing criteria. Owner scope and pin filter
// translate deterministically into SQL; the search text is matched against
// the decoded records.
type NoteQuery struct {
	OwnerID int64
	// Search restricts results to notes whose title, content or any tag
	// contains it, case-insensitively. Empty means no restriction.
	Search string
	// Pinned, when non-nil, restricts results to matching pin state.
	Pinned *bool
}

// NoteStore performs note persistence against the shared connection pool.
type NoteStore struct {
	db *sql.DB
}

func NewNoteStore(db *sql.DB) *NoteStore {
	return &NoteStore{db: db}
}

const noteColumns = "id, user_id, title, content, tags, is_pinned, created_at, updated_at"

// Create persists a new note bound to ownerID. Input must already be
// normalized and validated.
func (s *NoteStore) Create(ctx context.Context, ownerID int64, in CreateNoteInput) (models.Note, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tags, err := encodeTags(in.Tags)
	if err != nil {
		return models.Note{}, fmt.Errorf("encode tags: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (user_id, title, content, tags, is_pinned, created_at, updated_at)
		VALUES (?, ?, ?, ?, FALSE, ?, ?)`,
		ownerID, in.Title, in.Content, tags, now, now)
	if err != nil {
		return models.Note{}, fmt.Errorf("insert note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.Note{}, fmt.Errorf("note insert id: %w", err)
	}

	return models.Note{
		ID:        id,
		UserID:    ownerID,
		Title:     in.Title,
		Content:   in.Content,
		Tags:      in.Tags,
		IsPinned:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Get returns the note only when it exists under ownerID.
func (s *NoteStore) Get(ctx context.Context, ownerID, noteID int64) (models.Note, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE id = ? AND user_id = ?",
		noteID, ownerID)

	note, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Note{}, ErrNoteNotFound
		}
		return models.Note{}, fmt.Errorf("fetch note: %w", err)
	}
	return note, nil
}

// List returns the owner's notes matching the query, pinned first, then
// most recently created. Search matching happens on the decoded records,
// so tag values are compared as the caller stored them, not as their
// serialized column form.
func (s *NoteStore) List(ctx context.Context, q NoteQuery) ([]models.Note, error) {
	query, args := buildListQuery(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if q.Search != "" && !noteMatchesSearch(note, q.Search) {
			continue
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Update applies the supplied fields in place. Owner and createdAt never
// change; updatedAt is refreshed. Missing or foreign notes report
// ErrNoteNotFound.
func (s *NoteStore) Update(ctx context.Context, ownerID, noteID int64, in UpdateNoteInput) (models.Note, error) {
	set := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC().Truncate(time.Microsecond)}

	if in.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *in.Title)
	}
	if in.Content != nil {
		set = append(set, "content = ?")
		args = append(args, *in.Content)
	}
	if in.Tags != nil {
		tags, err := encodeTags(*in.Tags)
		if err != nil {
			return models.Note{}, fmt.Errorf("encode tags: %w", err)
		}
		set = append(set, "tags = ?")
		args = append(args, tags)
	}
	if in.IsPinned != nil {
		set = append(set, "is_pinned = ?")
		args = append(args, *in.IsPinned)
	}

	args = append(args, noteID, ownerID)
	_, err := s.db.ExecContext(ctx,
		"UPDATE notes SET "+strings.Join(set, ", ")+" WHERE id = ? AND user_id = ?",
		args...)
	if err != nil {
		return models.Note{}, fmt.Errorf("update note: %w", err)
	}

	// Re-read under the same owner scope; a vanished row surfaces as not
	// found rather than a stale copy.
	return s.Get(ctx, ownerID, noteID)
}

// Delete removes the owned note. Deleting a missing or foreign note
// reports ErrNoteNotFound.
func (s *NoteStore) Delete(ctx context.Context, ownerID, noteID int64) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM notes WHERE id = ? AND user_id = ?", noteID, ownerID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if affected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// buildListQuery translates a NoteQuery's owner scope and pin filter into
// SQL. The search text never reaches the query, so LIKE wildcards and the
// stored tag encoding play no part in matching.
func buildListQuery(q NoteQuery) (string, []interface{}) {
	where := []string{"user_id = ?"}
	args := []interface{}{q.OwnerID}

	if q.Pinned != nil {
		where = append(where, "is_pinned = ?")
		args = append(args, *q.Pinned)
	}

	query := "SELECT " + noteColumns + " FROM notes WHERE " + strings.Join(where, " AND ") +
		" ORDER BY is_pinned DESC, created_at DESC, id DESC"
	return query, args
}

// noteMatchesSearch reports whether the search text occurs, case-
// insensitively, in the note's title, content or any tag. Every character
// of the search text is literal.
func noteMatchesSearch(note models.Note, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(note.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(note.Content), needle) {
		return true
	}
	for _, tag := range note.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row scanner) (models.Note, error) {
	var (
		note    models.Note
		rawTags string
	)
	if err := row.Scan(&note.ID, &note.UserID, &note.Title, &note.Content,
		&rawTags, &note.IsPinned, &note.CreatedAt, &note.UpdatedAt); err != nil {
		return models.Note{}, err
	}

	tags, err := decodeTags(rawTags)
	if err != nil {
		return models.Note{}, fmt.Errorf("decode tags: %w", err)
	}
	note.Tags = tags
	return note, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}

	// Plain JSON, no HTML escaping: "AT&T" stays "AT&T" in the column.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tags); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func decodeTags(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}
