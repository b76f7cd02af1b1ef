package service

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrNotGroup       = errors.New("not a group conversation")
	ErrNotDirect      = errors.New("not a direct conversation")
	ErrSelfChat       = errors.New("cannot chat with yourself")
	ErrMessageDeleted = errors.New("message is deleted")
)
