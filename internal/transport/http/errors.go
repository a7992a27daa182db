package http

import (
	"errors"
	"net/http"

	authzdomain "github.com/astro-web3/coffee-drinks/internal/domain/authz"
	drinkdomain "github.com/astro-web3/coffee-drinks/internal/domain/drink"
	"github.com/astro-web3/coffee-drinks/pkg/logger"
	"github.com/gin-gonic/gin"
)

var (
	errBadRequest       = errors.New("bad request")
	errNotFound         = errors.New("resource not found")
	errMethodNotAllowed = errors.New("method not allowed")
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// writeError is the only place errors become responses. Authorization
// failures keep their own status; storage errors never masquerade as one.
func writeError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "internal server error"

	if failure, ok := authzdomain.AsFailure(err); ok {
		status, message = failure.HTTPStatus, failure.Description
	} else {
		switch {
		case errors.Is(err, errBadRequest):
			status, message = http.StatusBadRequest, errBadRequest.Error()
		case errors.Is(err, errNotFound), errors.Is(err, drinkdomain.ErrDrinkNotFound):
			status, message = http.StatusNotFound, errNotFound.Error()
		case errors.Is(err, errMethodNotAllowed):
			status, message = http.StatusMethodNotAllowed, errMethodNotAllowed.Error()
		case errors.Is(err, drinkdomain.ErrDuplicateTitle):
			status, message = http.StatusConflict, err.Error()
		case errors.Is(err, drinkdomain.ErrInvalidDrink):
			status, message = http.StatusUnprocessableEntity, err.Error()
		default:
			logger.ErrorContext(c.Request.Context(), "unhandled error", logger.Err(err))
		}
	}

	c.AbortWithStatusJSON(status, errorResponse{
		Success: false,
		Error:   status,
		Message: message,
	})
}
