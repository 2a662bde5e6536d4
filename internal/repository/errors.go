package repository

import "errors"

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("user already exists")
	ErrLastAdmin  = errors.New("cannot demote the last admin")
)
