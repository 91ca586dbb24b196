package service

import "errors"

var (
	ErrInvalidIdentity   = errors.New("invalid session identity")
	ErrInvalidCartItem   = errors.New("invalid cart item")
	ErrCartLineNotFound  = errors.New("cart line not found")
	ErrRemoteMutation    = errors.New("remote cart mutation failed")
	ErrRemoteUnavailable = errors.New("remote cart api unavailable")
	ErrAuthFailed        = errors.New("remote login failed")
)
