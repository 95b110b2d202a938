package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}

// messageResponse is the {"message": ...} shape used by the enrollment and
// verification endpoints.
type messageResponse struct {
	Message string `json:"message"`
	VoterID string `json:"voterId,omitempty"`
}

// errorResponse is the {"error": ...} shape used by the vote endpoints.
type errorResponse struct {
	Error string `json:"error"`
}

// decodeJSON parses the request body into dst, rejecting unknown-shaped
// bodies with a descriptive error.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// flexString accepts a JSON field that the capture frontend may submit as
// either a string or a number and normalizes it to a string.
type flexString string

// UnmarshalJSON implements [json.Unmarshaler].
func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// coerceDescriptor converts a raw descriptor array to floats. Elements may
// arrive as numbers or numeric strings; anything else fails.
func coerceDescriptor(raw []any) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, v := range raw {
		switch x := v.(type) {
		case float64:
			out[i] = x
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return nil, fmt.Errorf("descriptor element %d is not numeric", i)
			}
			out[i] = f
		default:
			return nil, fmt.Errorf("descriptor element %d is not numeric", i)
		}
	}
	return out, nil
}
