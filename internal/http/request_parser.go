// Package http exposes the budget engine and its edit sessions as a JSON API.
//
// This file holds the helpers that turn path parameters, query strings and
// request bodies into domain values, so handlers only deal with typed input.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/core"
)

// maxBodyBytes bounds every JSON body; pasted rows are the largest payload.
const maxBodyBytes = 1 << 20

// errMalformedBody is mapped to 400 Bad Request.
var errMalformedBody = errors.New("malformed request body")

// pathYear parses the {year} path parameter.
func pathYear(r *http.Request) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "year"))
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidYear, raw)
	}
	if err := core.ValidateYear(year); err != nil {
		return 0, fmt.Errorf("%w: %d", err, year)
	}
	return year, nil
}

// pathComponentID parses the {id} path parameter.
func pathComponentID(r *http.Request) (core.ComponentID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: component id %q", core.ErrMissingField, raw)
	}
	return core.ComponentID(id), nil
}

// queryKind reads ?kind=budget|actual; a missing kind means budget.
func queryKind(r *http.Request) (core.ValueKind, error) {
	raw := r.URL.Query().Get("kind")
	kind, err := core.ParseValueKind(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, raw)
	}
	return kind, nil
}

// decodeJSON reads a single JSON document into dst, rejecting unknown
// fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformedBody)
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON document", errMalformedBody)
	}
	return nil
}

// sanitizeInput removes control characters other than tab and newlines.
// Pasted rows rely on both.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
