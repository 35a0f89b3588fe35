package errutil

import (
	"errors"
	"net/http"
)

type httpError struct {
	code int
	err  error
}

func (e *httpError) Error() string {
	return e.err.Error()
}

func (e *httpError) Unwrap() error {
	return e.err
}

func newHttpError(code int, err error) error {
	if err == nil {
		return nil
	}
	return &httpError{
		code: code,
		err:  err,
	}
}

func BadRequestError(err error) error {
	return newHttpError(http.StatusBadRequest, err)
}

func ValidationError(err error) error {
	return newHttpError(http.StatusUnprocessableEntity, err)
}

func NotFoundError(err error) error {
	return newHttpError(http.StatusNotFound, err)
}

func ConflictError(err error) error {
	return newHttpError(http.StatusConflict, err)
}

func UnauthorizedError(err error) error {
	return newHttpError(http.StatusUnauthorized, err)
}

// ParseHttpError maps an error to an HTTP status code and message.
// Errors without an explicit code are reported as internal errors.
func ParseHttpError(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	httpErr := new(httpError)
	if errors.As(err, &httpErr) {
		return httpErr.code, httpErr.err.Error()
	}

	return http.StatusInternalServerError, err.Error()
}
