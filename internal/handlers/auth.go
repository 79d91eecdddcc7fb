package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/leafnote/leafnote-server/internal/auth"
	"github.com/leafnote/leafnote-server/internal/models"
	"github.com/leafnote/leafnote-server/internal/response"
	"github.com/leafnote/leafnote-server/internal/store"
	"github.com/leafnote/leafnote-server/internal/validation"
)

// UsersStore is the user persistence the auth handlers need.
type UsersStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterHandler creates a new account and logs it in by setting the
// token cookie.
func RegisterHandler(users UsersStore, tokens *auth.TokenService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in RegisterInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.BadRequest(w, "Invalid request body")
			return
		}

		in.Name = strings.TrimSpace(in.Name)
		in.Email = strings.ToLower(strings.TrimSpace(in.Email))
		if err := validation.Struct(&in); err != nil {
			response.HandleError(w, logger, err, "Failed to register")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			response.HandleError(w, logger, err, "Failed to register")
			return
		}

		user, err := users.Create(r.Context(), in.Name, in.Email, string(hash))
		if err != nil {
			response.HandleError(w, logger, err, "Failed to register")
			return
		}

		token, err := tokens.Generate(user.ID, user.Email)
		if err != nil {
			response.HandleError(w, logger, err, "Failed to register")
			return
		}

		setTokenCookie(w, token)
		response.Created(w, user)
	}
}

// LoginHandler verifies credentials and sets the token cookie. A missing
// user and a wrong password respond identically.
func LoginHandler(users UsersStore, tokens *auth.TokenService, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in LoginInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.BadRequest(w, "Invalid request body")
			return
		}

		in.Email = strings.ToLower(strings.TrimSpace(in.Email))
		if err := validation.Struct(&in); err != nil {
			response.HandleError(w, logger, err, "Failed to log in")
			return
		}

		user, err := users.GetByEmail(r.Context(), in.Email)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				response.Unauthorized(w, "Invalid email or password")
				return
			}
			response.HandleError(w, logger, err, "Failed to log in")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
			response.Unauthorized(w, "Invalid email or password")
			return
		}

		token, err := tokens.Generate(user.ID, user.Email)
		if err != nil {
			response.HandleError(w, logger, err, "Failed to log in")
			return
		}

		setTokenCookie(w, token)
		response.Success(w, user)
	}
}

// LogoutHandler clears the token cookie. The token itself stays valid
// until expiry; nothing is stored server-side to revoke.
func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    "",
			HttpOnly: true,
			Path:     "/",
			MaxAge:   -1,
			SameSite: http.SameSiteLaxMode,
		})
		response.Message(w, "Logged out successfully")
	}
}

// MeHandler returns the authenticated caller's own record.
func MeHandler(users UsersStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserIDFromContext(r.Context())

		user, err := users.GetByID(r.Context(), userID)
		if err != nil {
			response.HandleError(w, logger, err, "Failed to fetch user")
			return
		}
		response.Success(w, user)
	}
}

func setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		Expires:  time.Now().Add(auth.TokenDuration),
		SameSite: http.SameSiteLaxMode,
	})
}
