package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	errTypeInvalidRequest = "invalid_request_error"
	errTypeSetup          = "setup_error"
	errTypeUnsupported    = "unsupported_media_type"
	errTypeServer         = "server_error"
	errTypeCancelled      = "request_cancelled"
)

// statusClientClosedRequest is nginx's non-standard code for a client that
// went away before the response was ready.
const statusClientClosedRequest = 499

type requestError struct {
	Status  int
	Message string
	Type    string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	return c.JSON(status, payload)
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		errType := errTypeInvalidRequest
		if he.Code >= http.StatusInternalServerError {
			errType = errTypeServer
		}
		_ = writeError(c, he.Code, fmt.Sprint(he.Message), errType)
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error", errTypeServer)
}

// statusOf is the status jsonErrorHandler will answer err with.
func statusOf(err error) int {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func invalidRequest(message string) error {
	return requestError{Status: http.StatusBadRequest, Message: message, Type: errTypeInvalidRequest}
}
