package contract

import "errors"

var (
	ErrModelInvoke        = errors.New("model invoke failed")
	ErrSchemaViolation    = errors.New("model response violates schema")
	ErrValidation         = errors.New("validation failed")
	ErrNoPendingQuery     = errors.New("no pending query for user")
	ErrIdentityUnresolved = errors.New("could not resolve user identity")
)
