package domain

import "errors"

// ErrContentNotFound signals a missing content record.
var ErrContentNotFound = errors.New("content not found")
