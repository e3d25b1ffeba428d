package services

import "errors"

var (
	// ErrNoData is returned when an upload carries no dataset
	ErrNoData = errors.New("no dataset provided")

	// ErrNoRules is returned when an upload carries no rule set
	ErrNoRules = errors.New("no rule set provided")
)
