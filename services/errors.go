package services

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cleanpath/cleanpath-api/models"
)

// Kind classifies a service failure so the transport can pick a status code
type Kind int

// Error kinds
const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidToken
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidToken:
		return "invalid token"
	case KindNotFound:
		return "not found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the typed error returned by every service operation
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validationf reports missing or malformed input
func Validationf(format string, args ...interface{}) error {
	return newError(KindValidation, format, args...)
}

// InvalidTokenf reports a QR token that does not match the stored one
func InvalidTokenf(format string, args ...interface{}) error {
	return newError(KindInvalidToken, format, args...)
}

// NotFoundf reports a referenced entity that does not exist
func NotFoundf(format string, args ...interface{}) error {
	return newError(KindNotFound, format, args...)
}

// Unauthorizedf reports a missing or unusable caller identity
func Unauthorizedf(format string, args ...interface{}) error {
	return newError(KindUnauthorized, format, args...)
}

// Forbiddenf reports a caller that may not act on the entity
func Forbiddenf(format string, args ...interface{}) error {
	return newError(KindForbidden, format, args...)
}

// Conflictf reports a state guard violation
func Conflictf(format string, args ...interface{}) error {
	return newError(KindConflict, format, args...)
}

// Internal wraps an unexpected persistence or collaborator failure
func Internal(message string, err error) error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err. Errors that did not come from this package
// are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// storeError turns a datastore failure into a typed error, mapping a missing
// document to NotFound for the named entity.
func storeError(err error, entity string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return NotFoundf("%s not found", entity)
	}
	return Internal(fmt.Sprintf("failed to load %s", entity), err)
}

func parseID(field, value string) (primitive.ObjectID, error) {
	if value == "" {
		return primitive.NilObjectID, Validationf("%s is required", field)
	}
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, Validationf("%s is not a valid id", field)
	}
	return id, nil
}

// parseOptionalID returns nil for an empty value
func parseOptionalID(field, value string) (*primitive.ObjectID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := parseID(field, value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func actorID(actor models.Actor) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(actor.ID)
	if err != nil {
		return primitive.NilObjectID, Unauthorizedf("caller identity is missing")
	}
	return id, nil
}

func requireKind(actor models.Actor, kinds ...models.ActorKind) error {
	if actor.ID == "" {
		return Unauthorizedf("caller identity is missing")
	}
	if !actor.Is(kinds...) {
		return Forbiddenf("%s may not perform this action", actor.Kind)
	}
	return nil
}
