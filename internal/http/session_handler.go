package httpapi

import (
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

type sessionResponse struct {
	User *session.User `json:"user"`
	Cart cartResponse  `json:"cart"`
}

func newSessionResponse(c *storefront.Client) sessionResponse {
	return sessionResponse{User: c.Session.Current(), Cart: newCartResponse(c.Cart)}
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	c := h.peekClient(r)
	if c == nil {
		writeJSON(w, http.StatusOK, sessionResponse{Cart: emptyCartResponse()})
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(c))
}

// SignIn trusts the identity in the body; credentials are checked by the
// auth provider before the storefront is called.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeBodyError(w, err)
		return
	}

	c := h.client(r)
	if err := c.Session.SignIn(r.Context(), session.User{ID: body.UserID, Email: body.Email}); err != nil {
		if errors.Is(err, session.ErrInvalidUser) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(c))
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	c := h.peekClient(r)
	if c == nil {
		writeJSON(w, http.StatusOK, sessionResponse{Cart: emptyCartResponse()})
		return
	}
	c.Session.SignOut(r.Context())
	writeJSON(w, http.StatusOK, newSessionResponse(c))
}
