package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Erikmmkarlsson/graphmaster/internal/common"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/tsdb"
)

// Machine-readable error codes in the response envelope.
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeConflict            = "CONFLICT"
	CodeUnprocessableEntity = "UNPROCESSABLE_ENTITY"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
)

// ErrorResponse is the envelope every non-2xx response carries.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Messages []string `json:"messages"`
}

func abortWithError(c *gin.Context, status int, code string, messages ...string) {
	if len(messages) == 0 {
		messages = []string{http.StatusText(status)}
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Messages: messages})
}

// abortServiceError translates sentinel errors from the service layer into the
// envelope. Anything unrecognized is a 500 carrying the request correlation id
// instead of the error text.
func abortServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
	case errors.Is(err, common.ErrTokenExpired):
		abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, "token expired")
	case errors.Is(err, common.ErrRefreshWindowExpired):
		abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, "refresh window expired")
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrPurposeMismatch):
		abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid token")
	case errors.Is(err, common.ErrUserDisabled):
		abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, "account disabled")
	case errors.Is(err, common.ErrForbidden):
		abortWithError(c, http.StatusForbidden, CodeForbidden)
	case errors.Is(err, common.ErrDuplicateUsername):
		abortWithError(c, http.StatusConflict, CodeConflict, "username already taken")
	case errors.Is(err, common.ErrInvalidUsername):
		abortWithError(c, http.StatusUnprocessableEntity, CodeUnprocessableEntity,
			"username must contain only letters, digits, '_' or '-' (max 64 characters)")
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrNamespaceNotFound):
		abortWithError(c, http.StatusNotFound, CodeNotFound)
	case errors.Is(err, common.ErrWriteRejected), errors.Is(err, tsdb.ErrFieldRequired):
		abortWithError(c, http.StatusUnprocessableEntity, CodeUnprocessableEntity, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, CodeInternalServerError,
			fmt.Sprintf("internal error, request id %s", RequestIDFromContext(c)))
	}
}
