package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/server/services"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decodeBody(w, r, &in); err != nil {
		h.writeMappedError(r.Context(), w, "register", err)
		return
	}

	res, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		h.writeMappedError(r.Context(), w, "register", err)
		return
	}

	writeSuccess(w, http.StatusCreated, envelope{
		"message": "User registered successfully",
		"token":   res.Token,
		"user":    res.User,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeBody(w, r, &in); err != nil {
		h.writeMappedError(r.Context(), w, "login", err)
		return
	}

	res, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		h.writeMappedError(r.Context(), w, "login", err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{
		"message": "Login successful",
		"token":   res.Token,
		"user":    res.User,
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetByID(r.Context(), mustIdentity(r))
	if err != nil {
		h.writeMappedError(r.Context(), w, "me", err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"user": user})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in services.ProfileInput
	if err := decodeBody(w, r, &in); err != nil {
		h.writeMappedError(r.Context(), w, "update_profile", err)
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), mustIdentity(r), in)
	if err != nil {
		h.writeMappedError(r.Context(), w, "update_profile", err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var in services.PasswordInput
	if err := decodeBody(w, r, &in); err != nil {
		h.writeMappedError(r.Context(), w, "change_password", err)
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), mustIdentity(r), in); err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, kindInvalidCreds, "Current password is incorrect")
			return
		}
		h.writeMappedError(r.Context(), w, "change_password", err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"message": "Password updated successfully"})
}
