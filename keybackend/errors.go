package keybackend

import "errors"

// ErrEmptyToken is returned when a token source exists but holds no token.
var ErrEmptyToken = errors.New("token source is empty")
