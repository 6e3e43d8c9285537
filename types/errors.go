/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages.
var (
	// ErrConfiguration marks invalid weights or thresholds. Rejected at
	// session construction, fatal to that session only.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing entity or record.
	ErrNotFound = errors.New("not found")
)

// LinkError provides structured error information for API and MCP responses
type LinkError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewLinkError creates a new structured link error
func NewLinkError(code string, message string, details map[string]interface{}) *LinkError {
	return &LinkError{
		Code:    code,
		Message: message,
		Details: details,
	}
}
