package ai

import "github.com/manifold-ai/manifold/core/aierr"

// ErrInvalidMessages is the configuration error wrapped by
// [ValidateMessages] when the conversation violates a message invariant.
var ErrInvalidMessages = &aierr.ConfigError{Message: "invalid message sequence"}
