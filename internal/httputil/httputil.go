package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// RespondError sends a JSON error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// ErrNoUpload is returned when a request carries no file
var ErrNoUpload = errors.New("no file uploaded")

// ErrTooLarge is returned when the uploaded file is over the size limit
var ErrTooLarge = errors.New("uploaded file too large")

// maxFormBytes bounds the non-file values of a multipart upload
const maxFormBytes = 1 << 20

// ReadUpload returns the bytes of the multipart file field, or of the raw
// body when the request is not multipart. Reads stop at maxBytes.
func ReadUpload(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return readMultipart(w, r, field, maxBytes)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoUpload
	}
	return data, nil
}

// readMultipart streams the parts of r into r.Form and r.PostForm. Only
// the file part is held to maxBytes, so an oversize file still leaves the
// other form values readable.
func readMultipart(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) ([]byte, error) {
	// Oversize files are streamed and dropped, up to this cap
	r.Body = http.MaxBytesReader(w, r.Body, 4*maxBytes+maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}
	// Body values win over query values, as with ParseMultipartForm
	defer func() {
		for k, vs := range r.PostForm {
			r.Form[k] = append(append([]string{}, vs...), r.Form[k]...)
		}
	}()

	var (
		data      []byte
		found     bool
		tooLarge  bool
		formBytes int64
	)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse upload: %w", err)
		}
		name := part.FormName()
		if name == "" {
			continue
		}

		if part.FileName() == "" {
			v, err := io.ReadAll(io.LimitReader(part, maxFormBytes-formBytes+1))
			if err != nil {
				return nil, fmt.Errorf("failed to parse upload: %w", err)
			}
			formBytes += int64(len(v))
			if formBytes > maxFormBytes {
				return nil, fmt.Errorf("failed to parse upload: form values over %d bytes", maxFormBytes)
			}
			r.PostForm.Add(name, string(v))
			continue
		}
		if name != field || found {
			continue
		}

		found = true
		data, err = io.ReadAll(io.LimitReader(part, maxBytes+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		if int64(len(data)) > maxBytes {
			tooLarge, data = true, nil
		}
	}

	switch {
	case tooLarge:
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, maxBytes)
	case !found:
		return nil, ErrNoUpload
	}
	return data, nil
}
