// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct
// metadata, so building one per request would be wasteful. Field names in
// errors are the JSON names ("users_id", not "UsersID") because the errors
// are returned to API clients and logged next to raw payloads.
//
// # Usage
//
//	var notice models.Notice
//	if err := json.Unmarshal(body, &notice); err != nil {
//	    // malformed
//	}
//	if verr := validation.ValidateStruct(&notice); verr != nil {
//	    respond(w, http.StatusBadRequest, verr.Response())
//	    return
//	}
//
// # Error shape
//
// RequestValidationError.Response returns
//
//	{"detail": [{"field": "priority", "tag": "max", "message": "priority must be at most 10"}]}
//
// The same list is used by the pipeline extractor when it terminates an
// invalid ingest message, so operators see identical wording in both places.
//
// # Custom tags
//
//   - timezone: an IANA zone name loadable with time.LoadLocation
package validation
