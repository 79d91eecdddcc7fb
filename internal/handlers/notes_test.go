package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafnote/leafnote-server/internal/auth"
	"github.com/leafnote/leafnote-server/internal/models"
	"github.com/leafnote/leafnote-server/internal/response"
	"github.com/leafnote/leafnote-server/internal/store"
)

type fakeNotesStore struct {
	createFn func(ctx context.Context, ownerID int64, in store.CreateNoteInput) (models.Note, error)
	getFn    func(ctx context.Context, ownerID, noteID int64) (models.Note, error)
	listFn   func(ctx context.Context, q store.NoteQuery) ([]models.Note, error)
	updateFn func(ctx context.Context, ownerID, noteID int64, in store.UpdateNoteInput) (models.Note, error)
	deleteFn func(ctx context.Context, ownerID, noteID int64) error
}

func (f *fakeNotesStore) Create(ctx context.Context, ownerID int64, in store.CreateNoteInput) (models.Note, error) {
	if f.createFn == nil {
		panic("unexpected Create call")
	}
	return f.createFn(ctx, ownerID, in)
}

func (f *fakeNotesStore) Get(ctx context.Context, ownerID, noteID int64) (models.Note, error) {
	if f.getFn == nil {
		panic("unexpected Get call")
	}
	return f.getFn(ctx, ownerID, noteID)
}

func (f *fakeNotesStore) List(ctx context.Context, q store.NoteQuery) ([]models.Note, error) {
	if f.listFn == nil {
		panic("unexpected List call")
	}
	return f.listFn(ctx, q)
}

func (f *fakeNotesStore) Update(ctx context.Context, ownerID, noteID int64, in store.UpdateNoteInput) (models.Note, error) {
	if f.updateFn == nil {
		panic("unexpected Update call")
	}
	return f.updateFn(ctx, ownerID, noteID, in)
}

func (f *fakeNotesStore) Delete(ctx context.Context, ownerID, noteID int64) error {
	if f.deleteFn == nil {
		panic("unexpected Delete call")
	}
	return f.deleteFn(ctx, ownerID, noteID)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// noteRouter mounts the handlers the way main does, minus the auth
// middleware; requests carry the owner id directly in their context.
func noteRouter(notes NotesStore) *mux.Router {
	logger := testLogger()
	r := mux.NewRouter()
	r.HandleFunc("/api/notes", ListNotesHandler(notes, logger)).Methods("GET")
	r.HandleFunc("/api/notes", CreateNoteHandler(notes, logger)).Methods("POST")
	r.HandleFunc("/api/notes/{id}", GetNoteHandler(notes, logger)).Methods("GET")
	r.HandleFunc("/api/notes/{id}", UpdateNoteHandler(notes, logger)).Methods("PUT")
	r.HandleFunc("/api/notes/{id}", DeleteNoteHandler(notes, logger)).Methods("DELETE")
	return r
}

func authedRequest(method, target string, body string, ownerID int64) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(auth.ContextWithUserID(req.Context(), ownerID))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	return envelope
}

func TestListNotesHandler(t *testing.T) {
	now := time.Now().UTC()
	var gotQuery store.NoteQuery
	notes := &fakeNotesStore{
		listFn: func(ctx context.Context, q store.NoteQuery) ([]models.Note, error) {
			gotQuery = q
			return []models.Note{
				{ID: 2, UserID: 7, Title: "pinned", IsPinned: true, Tags: []string{}, CreatedAt: now, UpdatedAt: now},
				{ID: 1, UserID: 7, Title: "older", Tags: []string{}, CreatedAt: now.Add(-time.Hour), UpdatedAt: now},
			}, nil
		},
	}

	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("GET", "/api/notes?search=cat&isPinned=true", "", 7))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(7), gotQuery.OwnerID)
	assert.Equal(t, "cat", gotQuery.Search)
	require.NotNil(t, gotQuery.Pinned)
	assert.True(t, *gotQuery.Pinned)

	envelope := decodeEnvelope(t, rr)
	assert.True(t, envelope.Success)
	assert.Len(t, envelope.Data, 2)
}

func TestListNotesHandler_NoFilters(t *testing.T) {
	var gotQuery store.NoteQuery
	notes := &fakeNotesStore{
		listFn: func(ctx context.Context, q store.NoteQuery) ([]models.Note, error) {
			gotQuery = q
			return []models.Note{}, nil
		},
	}

	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("GET", "/api/notes", "", 7))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, gotQuery.Search)
	assert.Nil(t, gotQuery.Pinned)

	// Empty result is an empty array on the wire, not null.
	assert.Contains(t, rr.Body.String(), `"data":[]`)
}

func TestListNotesHandler_StoreFailure(t *testing.T) {
	notes := &fakeNotesStore{
		listFn: func(ctx context.Context, q store.NoteQuery) ([]models.Note, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}

	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("GET", "/api/notes", "", 7))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to fetch notes", decodeEnvelope(t, rr).Error)
}

func TestCreateNoteHandler(t *testing.T) {
	var gotOwner int64
	var gotInput store.CreateNoteInput
	notes := &fakeNotesStore{
		createFn: func(ctx context.Context, ownerID int64, in store.CreateNoteInput) (models.Note, error) {
			gotOwner = ownerID
			gotInput = in
			return models.Note{ID: 1, UserID: ownerID, Title: in.Title, Content: in.Content, Tags: in.Tags}, nil
		},
	}

	body := `{"title":"  Groceries  ","content":"milk","tags":[" food "]}`
	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("POST", "/api/notes", body, 7))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, int64(7), gotOwner)
	assert.Equal(t, "Groceries", gotInput.Title)
	assert.Equal(t, "milk", gotInput.Content)
	assert.Equal(t, []string{"food"}, gotInput.Tags)
	assert.True(t, decodeEnvelope(t, rr).Success)
}

func TestCreateNoteHandler_EmptyTitle(t *testing.T) {
	notes := &fakeNotesStore{} // any store call panics

	body := `{"title":"   ","content":"milk"}`
	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("POST", "/api/notes", body, 7))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Title is required", decodeEnvelope(t, rr).Error)
}

func TestCreateNoteHandler_MalformedBody(t *testing.T) {
	notes := &fakeNotesStore{}

	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("POST", "/api/notes", `{"title":`, 7))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid request body", decodeEnvelope(t, rr).Error)
}

func TestGetNoteHandler(t *testing.T) {
	notes := &fakeNotesStore{
		getFn: func(ctx context.Context, ownerID, noteID int64) (models.Note, error) {
			assert.Equal(t, int64(7), ownerID)
			assert.Equal(t, int64(42), noteID)
			return models.Note{ID: 42, UserID: 7, Title: "a", Content: "b", Tags: []string{}}, nil
		},
	}

	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("GET", "/api/notes/42", "", 7))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeEnvelope(t, rr).Success)
}

func TestGetNoteHandler_InvalidID(t *testing.T) {
	notes := &fakeNotesStore{}

	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("GET", "/api/notes/not-a-number", "", 7))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid note ID", decodeEnvelope(t, rr).Error)
}

func TestGetNoteHandler_NotFound(t *testing.T) {
	notes := &fakeNotesStore{
		getFn: func(ctx context.Context, ownerID, noteID int64) (models.Note, error) {
			return models.Note{}, store.ErrNoteNotFound
		},
	}

	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("GET", "/api/notes/42", "", 7))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Note not found", decodeEnvelope(t, rr).Error)
}

func TestUpdateNoteHandler_PinToggle(t *testing.T) {
	var gotInput store.UpdateNoteInput
	notes := &fakeNotesStore{
		updateFn: func(ctx context.Context, ownerID, noteID int64, in store.UpdateNoteInput) (models.Note, error) {
			gotInput = in
			return models.Note{ID: noteID, UserID: ownerID, IsPinned: *in.IsPinned, Tags: []string{}}, nil
		},
	}

	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("PUT", "/api/notes/42", `{"isPinned":true}`, 7))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, gotInput.IsPinned)
	assert.True(t, *gotInput.IsPinned)
	assert.Nil(t, gotInput.Title)
	assert.Nil(t, gotInput.Content)
	assert.Nil(t, gotInput.Tags)
}

func TestUpdateNoteHandler_EmptyTitle(t *testing.T) {
	notes := &fakeNotesStore{}

	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("PUT", "/api/notes/42", `{"title":"  "}`, 7))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Title is required", decodeEnvelope(t, rr).Error)
}

func TestUpdateNoteHandler_NotFound(t *testing.T) {
	notes := &fakeNotesStore{
		updateFn: func(ctx context.Context, ownerID, noteID int64, in store.UpdateNoteInput) (models.Note, error) {
			return models.Note{}, store.ErrNoteNotFound
		},
	}

	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("PUT", "/api/notes/42", `{"title":"new"}`, 7))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteNoteHandler(t *testing.T) {
	var deleted int64
	notes := &fakeNotesStore{
		deleteFn: func(ctx context.Context, ownerID, noteID int64) error {
			assert.Equal(t, int64(7), ownerID)
			deleted = noteID
			return nil
		},
	}

	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("DELETE", "/api/notes/42", "", 7))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(42), deleted)
	assert.Equal(t, "Note deleted successfully", decodeEnvelope(t, rr).Message)
}

func TestDeleteNoteHandler_AlreadyDeleted(t *testing.T) {
	notes := &fakeNotesStore{
		deleteFn: func(ctx context.Context, ownerID, noteID int64) error {
			return store.ErrNoteNotFound
		},
	}

	rr := httptest.NewRecorder()
	noteRouter(notes).ServeHTTP(rr, authedRequest("DELETE", "/api/notes/42", "", 7))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Note not found", decodeEnvelope(t, rr).Error)
}
