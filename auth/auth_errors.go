package auth

import "errors"

var (
	PasswordsDontMatchErr = errors.New("password and confirmation do not match")
	WeakPasswordErr       = errors.New("password does not meet strength requirements")
)
