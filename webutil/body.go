package webutil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ReadBody reads at most limit bytes of the request body. A larger body
// yields a 413 rather than a truncated read.
func ReadBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrRequestTooLargeWrap(fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), err)
		}
		return nil, ErrBadRequestWrap("Could not read request body", err)
	}
	return body, nil
}
