package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/leafnote/leafnote-server/internal/auth"
	"github.com/leafnote/leafnote-server/internal/models"
	"github.com/leafnote/leafnote-server/internal/response"
	"github.com/leafnote/leafnote-server/internal/store"
	"github.com/leafnote/leafnote-server/internal/validation"
)

// NotesStore is the note persistence the note handlers need.
type NotesStore interface {
	Create(ctx context.Context, ownerID int64, in store.CreateNoteInput) (models.Note, error)
	Get(ctx context.Context, ownerID, noteID int64) (models.Note, error)
	List(ctx context.Context, q store.NoteQuery) ([]models.Note, error)
	Update(ctx context.Context, ownerID, noteID int64, in store.UpdateNoteInput) (models.Note, error)
	Delete(ctx context.Context, ownerID, noteID int64) error
}

// ListNotesHandler returns the caller's notes, pinned first, newest first.
// Supports ?search= (title, content or any tag, case-insensitive) and
// ?isPinned=true|false.
func ListNotesHandler(notes NotesStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		q := store.NoteQuery{
			OwnerID: auth.UserIDFromContext(r.Context()),
			Search:  query.Get("search"),
		}
		if query.Has("isPinned") {
			pinned := query.Get("isPinned") == "true"
			q.Pinned = &pinned
		}

		result, err := notes.List(r.Context(), q)
		if err != nil {
			response.HandleError(w, logger, err, "Failed to fetch notes")
			return
		}
		response.Success(w, result)
	}
}

// CreateNoteHandler creates a note owned by the caller.
func CreateNoteHandler(notes NotesStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in store.CreateNoteInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.BadRequest(w, "Invalid request body")
			return
		}

		in.Normalize()
		if err := validation.Struct(&in); err != nil {
			response.HandleError(w, logger, err, "Failed to create note")
			return
		}

		note, err := notes.Create(r.Context(), auth.UserIDFromContext(r.Context()), in)
		if err != nil {
			response.HandleError(w, logger, err, "Failed to create note")
			return
		}
		response.Created(w, note)
	}
}

// GetNoteHandler fetches a single owned note.
func GetNoteHandler(notes NotesStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noteID, ok := noteIDFromRequest(w, r)
		if !ok {
			return
		}

		note, err := notes.Get(r.Context(), auth.UserIDFromContext(r.Context()), noteID)
		if err != nil {
			response.HandleError(w, logger, err, "Failed to fetch note")
			return
		}
		response.Success(w, note)
	}
}

// UpdateNoteHandler applies a partial update to an owned note. Pin
// toggling is this endpoint with {"isPinned": true|false}.
func UpdateNoteHandler(notes NotesStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noteID, ok := noteIDFromRequest(w, r)
		if !ok {
			return
		}

		var in store.UpdateNoteInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.BadRequest(w, "Invalid request body")
			return
		}

		in.Normalize()
		if err := validation.Struct(&in); err != nil {
			response.HandleError(w, logger, err, "Failed to update note")
			return
		}

		note, err := notes.Update(r.Context(), auth.UserIDFromContext(r.Context()), noteID, in)
		if err != nil {
			response.HandleError(w, logger, err, "Failed to update note")
			return
		}
		response.Success(w, note)
	}
}

// DeleteNoteHandler removes an owned note.
func DeleteNoteHandler(notes NotesStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noteID, ok := noteIDFromRequest(w, r)
		if !ok {
			return
		}

		if err := notes.Delete(r.Context(), auth.UserIDFromContext(r.Context()), noteID); err != nil {
			response.HandleError(w, logger, err, "Failed to delete note")
			return
		}
		response.Message(w, "Note deleted successfully")
	}
}

// noteIDFromRequest parses the {id} path variable. A syntactically invalid
// id is a 400, not a 404.
func noteIDFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	noteID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || noteID <= 0 {
		response.BadRequest(w, "Invalid note ID")
		return 0, false
	}
	return noteID, true
}
