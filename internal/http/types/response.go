// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"encoding/json"
	"net/http"
)

// Response is the standard JSON envelope for every API response.
type Response struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Status  int         `json:"status"`
}

// WriteResponse writes the envelope with the given HTTP status. Encoding
// failures are swallowed; headers are already on the wire by then.
func WriteResponse(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(Response{
		Data:    data,
		Message: message,
		Status:  status,
	})
}

// WriteErrorResponse writes an error envelope with no data.
func WriteErrorResponse(w http.ResponseWriter, status int, message string) {
	WriteResponse(w, status, nil, message)
}
