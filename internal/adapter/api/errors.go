package api

import (
	"errors"
	"github.com/burenotti/go_coach_backend/internal/app/authapp"
	"github.com/burenotti/go_coach_backend/internal/domain/activity"
	"github.com/burenotti/go_coach_backend/internal/domain/auth"
	"github.com/burenotti/go_coach_backend/internal/domain/connection"
	"github.com/burenotti/go_coach_backend/internal/domain/invite"
	"github.com/burenotti/go_coach_backend/internal/domain/ledger"
	"github.com/burenotti/go_coach_backend/internal/domain/profile"
	"github.com/labstack/echo/v4"
	"net/http"
)

const (
	CodeInvalidCode       = "INVALID_CODE"
	CodeAlreadyConnected  = "ALREADY_CONNECTED"
	CodeRequestPending    = "REQUEST_PENDING"
	CodeSelfConnection    = "SELF_CONNECTION"
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyResponded  = "ALREADY_RESPONDED"
	CodeNotAuthenticated  = "NOT_AUTHENTICATED"
	CodeForbidden         = "FORBIDDEN"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInternalError     = "INTERNAL_ERROR"
	internalErrorMessage  = "internal error"
	notAuthenticatedError = "authentication required"
)

var errInvalidRequest = errors.New("invalid request")

type JsonErrorModel struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func JsonError(c echo.Context, status int, code string, message string) error {
	return c.JSON(status, &JsonErrorModel{
		Success: false,
		Error:   code,
		Message: message,
	})
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorMappings is checked in order, so wrapped sentinels must come before
// the ones they wrap.
var errorMappings = []errorMapping{
	{errInvalidRequest, http.StatusBadRequest, CodeInvalidRequest, ""},
	{connection.ErrSelfConnection, http.StatusBadRequest, CodeSelfConnection, "you cannot connect to yourself"},
	{connection.ErrAlreadyConnected, http.StatusConflict, CodeAlreadyConnected, "you are already connected to this coach"},
	{connection.ErrRequestPending, http.StatusConflict, CodeRequestPending, "a connection request is already pending"},
	{connection.ErrAlreadyResponded, http.StatusConflict, CodeAlreadyResponded, "this request was already responded to"},
	{connection.ErrConnectionNotFound, http.StatusNotFound, CodeNotFound, "connection not found"},
	{connection.ErrForbidden, http.StatusForbidden, CodeForbidden, "you are not allowed to do this"},
	{invite.ErrCodeNotFound, http.StatusNotFound, CodeNotFound, "invite code not found"},
	{invite.ErrNotCoach, http.StatusForbidden, CodeForbidden, "only coaches have invite codes"},
	{profile.ErrProfileNotFound, http.StatusNotFound, CodeNotFound, "profile not found"},
	{profile.ErrProfileExists, http.StatusConflict, CodeAlreadyExists, "profile already exists"},
	{auth.ErrEmailTaken, http.StatusConflict, CodeAlreadyExists, "email is already registered"},
	{auth.ErrAccountExists, http.StatusConflict, CodeAlreadyExists, "account already exists"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, CodeNotAuthenticated, "invalid email or password"},
	{auth.ErrSessionEnded, http.StatusUnauthorized, CodeNotAuthenticated, "session has ended"},
	{auth.ErrAccountNotFound, http.StatusUnauthorized, CodeNotAuthenticated, notAuthenticatedError},
	{auth.ErrUnauthorized, http.StatusUnauthorized, CodeNotAuthenticated, notAuthenticatedError},
	{authapp.ErrAccessTokenExpired, http.StatusUnauthorized, CodeNotAuthenticated, "access token expired"},
	{authapp.ErrAccessTokenInvalid, http.StatusUnauthorized, CodeNotAuthenticated, notAuthenticatedError},
	{activity.ErrClientNotManaged, http.StatusForbidden, CodeForbidden, "client is not connected to you"},
	{activity.ErrInvalidTimestamp, http.StatusBadRequest, CodeInvalidRequest, "invalid timestamp"},
	{activity.ErrLogExists, http.StatusConflict, CodeAlreadyExists, "entry already exists"},
	{ledger.ErrEmptyItemID, http.StatusBadRequest, CodeInvalidRequest, "item id is required"},
}

// fail writes the error envelope for err. overrides take precedence over
// the default mappings, for routes where a sentinel means something more
// specific. Unknown errors are logged and reported as INTERNAL_ERROR.
func (s *Server) fail(c echo.Context, err error, overrides ...errorMapping) error {
	for _, m := range append(overrides, errorMappings...) {
		if errors.Is(err, m.target) {
			message := m.message
			if message == "" {
				message = err.Error()
			}
			return JsonError(c, m.status, m.code, message)
		}
	}

	s.logger.Error("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err,
	)
	return JsonError(c, http.StatusInternalServerError, CodeInternalError, internalErrorMessage)
}
