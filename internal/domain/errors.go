package domain

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrQueueFull  = errors.New("generation queue full")
	ErrConflict   = errors.New("conflict")
)
