package http

import (
	"mime"
	"net/http"

	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeValidationError(w, err)
		return
	}

	user, pair, err := h.users.Register(r.Context(), req.Email, req.Username, req.Password, req.FullName)
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "register", err)
		return
	}
	h.metrics.TokenIssued()

	writeSuccess(w, http.StatusCreated, registerResponse{
		User:          toUserResponse(user),
		tokenResponse: toTokenResponse(pair),
	})
}

// login accepts either a JSON {"login","password"} body or the OAuth2
// password form (username, password) used by the web client.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
			writeValidationError(w, err)
			return
		}
		req.Login = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	default:
		if err := decodeBody(r, &req, false); err != nil {
			writeValidationError(w, err)
			return
		}
	}

	if req.Login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "login and password are required")
		return
	}

	pair, err := h.users.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "login", err)
		return
	}
	h.metrics.TokenIssued()
	writeSuccess(w, http.StatusOK, toTokenResponse(pair))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeValidationError(w, err)
		return
	}

	pair, err := h.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "refresh", err)
		return
	}
	h.metrics.TokenIssued()
	writeSuccess(w, http.StatusOK, toTokenResponse(pair))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeValidationError(w, err)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := h.users.Logout(r.Context(), claims, req.RefreshToken); err != nil {
		writeMappedError(r.Context(), h.logger, w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "logged out")
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Me(r.Context(), identity(r))
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "get_me", err)
		return
	}
	writeSuccess(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeValidationError(w, err)
		return
	}

	user, err := h.users.UpdateMe(r.Context(), identity(r), models.UserUpdate{
		Email:    req.Email,
		UserName: req.Username,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "update_me", err)
		return
	}
	writeSuccess(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "get_user", err)
		return
	}
	writeSuccess(w, http.StatusOK, publicUserResponse{
		ID:       user.ID,
		Username: user.UserName,
		FullName: user.FullName,
	})
}
