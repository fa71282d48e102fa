package service

import (
	"errors"
)

// 錯誤種類，以 errors.Is 判斷
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrCapacity        = errors.New("capacity exceeded")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate limited")
)

// Error 是帶有種類的業務錯誤，Message 可直接回傳給客戶端
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrNameRequired     = newError(ErrValidation, "name required")
	ErrInvalidCapacity  = newError(ErrValidation, "max_participants must be at least 1")
	ErrInvalidLocation  = newError(ErrValidation, "invalid location")
	ErrEmptyContent     = newError(ErrValidation, "empty content")
	ErrRoomNotFound     = newError(ErrNotFound, "chatroom not found")
	ErrUserNotFound     = newError(ErrNotFound, "user not found")
	ErrNotParticipant   = newError(ErrAccessDenied, "access denied")
	ErrSenderMismatch   = newError(ErrAccessDenied, "cannot send as another user")
	ErrRoomFull         = newError(ErrCapacity, "chatroom is full")
	ErrInvalidToken     = newError(ErrUnauthenticated, "invalid or expired token")
	ErrTooManyMessages  = newError(ErrRateLimited, "sending too fast")
	ErrMalformedPayload = newError(ErrValidation, "malformed payload")
	ErrUnknownEvent     = newError(ErrValidation, "unknown event")
)

// IsDomainError 回傳 err 是否為可直接告知客戶端的業務錯誤
func IsDomainError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
