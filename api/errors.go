package api

import (
	"errors"
	"net/http"

	"github.com/spacemeshos/go-vault/vault"
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category"`
}

// statusOf maps vault error categories to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, vault.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, vault.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, vault.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, vault.ErrNoProgress):
		return http.StatusTooEarly
	case errors.Is(err, vault.ErrOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vault.ErrTransferFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func category(err error) string {
	if errors.Is(err, errBadRequest) {
		return "bad_request"
	}
	return vault.Category(err)
}
