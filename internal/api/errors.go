// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for conditions callers branch on.
var (
	// ErrMissingToken means an authenticated call was attempted without a
	// bearer token; the UI redirects to login.
	ErrMissingToken = errors.New("no auth token")

	// ErrUnauthorized means the server rejected the bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedResponse means a 2xx body did not decode into anything
	// usable.
	ErrMalformedResponse = errors.New("malformed server response")
)

// Error is a transport-level failure: a non-2xx status, or Status 0 for
// network errors that never produced a response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %s", e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("server error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error (HTTP %d)", e.Status)
}

// Is lets errors.Is(err, ErrUnauthorized) work on 401 transport errors.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// errorBody covers the message-bearing shapes the server has responded with.
type errorBody struct {
	Message string `json:"message"`
	Err     string `json:"error"`
	Detail  string `json:"detail"`
}

// errorFromResponse builds an *Error from a non-2xx response, pulling a
// human-readable message out of the body on a best-effort basis.
func errorFromResponse(status int, body []byte) error {
	apiErr := &Error{Status: status}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			apiErr.Message = parsed.Message
		case parsed.Err != "":
			apiErr.Message = parsed.Err
		case parsed.Detail != "":
			apiErr.Message = parsed.Detail
		}
	}
	return apiErr
}
