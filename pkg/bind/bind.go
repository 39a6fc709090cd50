// Package bind decodes and validates JSON request bodies.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/foodle-app/foodle/config"
	"github.com/foodle-app/foodle/pkg/validate"
)

const defaultMaxBody = 1 << 20

// ErrMalformed wraps every decoding failure.
var ErrMalformed = errors.New("malformed request body")

func maxBody() int64 {
	n := int64(config.GetInt("MAX_BODY_BYTES", defaultMaxBody))
	if n <= 0 {
		return defaultMaxBody
	}
	return n
}

// JSON decodes the body into dest, then validates it. An empty body decodes
// as {} so missing required fields are reported as validation errors.
// Validation failures come back as field → message with a nil error.
func JSON(r *http.Request, dest any) (map[string]string, error) {
	body := http.MaxBytesReader(nil, r.Body, maxBody())
	defer body.Close()

	dec := json.NewDecoder(body)
	err := dec.Decode(dest)
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
	case errors.As(err, &tooBig):
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrMalformed, tooBig.Limit)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	case dec.More():
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformed)
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}
