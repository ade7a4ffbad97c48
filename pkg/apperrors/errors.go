package apperrors

import "errors"

var (
	ErrTableNotFound    = errors.New("table not found")
	ErrRunInProgress    = errors.New("table is already part of a running batch")
	ErrRunNotFound      = errors.New("run not found")
	ErrPromotionBlocked = errors.New("promotion blocked by eligibility checklist")
	ErrNilTable         = errors.New("table must not be nil")
)
