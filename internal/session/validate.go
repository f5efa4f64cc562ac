// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ValidationError reports a required onboarding field that is empty after
// normalisation. No network call is made when it is returned.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Normalize returns s in Unicode NFC form with surrounding whitespace removed.
func Normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// required normalises value and returns a ValidationError if it is empty.
func required(field, value string) (string, error) {
	v := Normalize(value)
	if v == "" {
		return "", &ValidationError{Field: field}
	}
	return v, nil
}
