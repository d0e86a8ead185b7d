// Package formutil decodes and validates JSON request bodies.
//
// Example usage:
//
//	var in registerInput
//	if msg, ok := formutil.Decode(w, r, &in); !ok {
//		errorsfeature.BadRequest(w, msg)
//		return
//	}
package formutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/orghub/internal/app/system/inputval"
	"github.com/dalemusser/orghub/internal/app/system/limits"
)

// Decode reads a single JSON object from r into dst and runs
// inputval.Validate on it. Unknown fields are rejected. On failure it
// returns a message suitable for a 400 response.
func Decode(w http.ResponseWriter, r *http.Request, dst any) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return "Request body is required.", false
		case errors.As(err, &tooBig):
			return "Request body is too large.", false
		default:
			return "Request body is not valid JSON.", false
		}
	}
	if dec.More() {
		return "Request body must be a single JSON object.", false
	}

	if res := inputval.Validate(dst); res.HasErrors() {
		return res.First(), false
	}
	return "", true
}
