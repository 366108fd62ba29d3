// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

/*
Package uuid provides time-ordered unique identifiers for the platform.

It wraps the standard UUID library to generate Version 7 values, which are
time-sortable and keep Postgres primary-key indexes compact.
*/
package uuid

import guuid "github.com/google/uuid"

// New returns a new UUIDv7 string.
//
// Falls back to a random v4 in the (practically impossible) case that the
// monotonic clock source fails.
func New() string {
	id, err := guuid.NewV7()
	if err != nil {
		return guuid.New().String()
	}
	return id.String()
}

// IsValid reports whether the given string parses as a UUID.
func IsValid(value string) bool {
	_, err := guuid.Parse(value)
	return err == nil
}
