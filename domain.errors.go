package main

import (
	"errors"
	"net/http"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrBookConflict = errors.New("book with the same id already exists")
	ErrOutOfStock   = errors.New("book is out of stock")
	ErrInvalidInput = errors.New("invalid input")
)

type (
	missingFieldError string
	invalidFieldError struct {
		field  string
		reason string
	}
)

func (m missingFieldError) Error() string {
	return string(m) + " is required"
}

func (m missingFieldError) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e invalidFieldError) Error() string {
	return e.field + " " + e.reason
}

func (e invalidFieldError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ErrorStatus maps a catalog error to the http status code and the
// message sent to the client. Unknown errors are server-side failures.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBookNotFound):
		return http.StatusNotFound, "book does not exist"
	case errors.Is(err, ErrBookConflict):
		return http.StatusBadRequest, "book with the same id already exists"
	case errors.Is(err, ErrOutOfStock):
		return http.StatusBadRequest, "book is out of stock"
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "failed to process the request"
	}
}
