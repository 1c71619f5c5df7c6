package validators

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
)

// multipartMemory is the part of a multipart body held in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// formOverhead leaves room for the non-file fields of an upload form.
const formOverhead = 1 << 20

// UploadedFile is a file part taken from a multipart form.
type UploadedFile struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// Close releases the file and any temporary form storage.
func (u *UploadedFile) Close(r *http.Request) error {
	err := u.File.Close()
	if r.MultipartForm != nil {
		if rmErr := r.MultipartForm.RemoveAll(); err == nil {
			err = rmErr
		}
	}
	return err
}

// ParseMultipartFile bounds the request body, parses the form and returns
// the file stored under field.
func ParseMultipartFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (*UploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, pkgerrors.New(pkgerrors.CodeTooLarge,
				fmt.Sprintf("File size exceeds maximum limit of %dMB", maxBytes/(1024*1024)))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "No file uploaded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file field")
	}
	return &UploadedFile{File: file, Header: header}, nil
}

// FormString returns a trimmed form value.
func FormString(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

// FormStringPtr returns a trimmed form value, or nil when it is blank.
func FormStringPtr(r *http.Request, key string) *string {
	v := FormString(r, key)
	if v == "" {
		return nil
	}
	return &v
}

// FormIntPtr parses an optional integer form value.
func FormIntPtr(r *http.Request, key string) (*int, error) {
	raw := FormString(r, key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, key+" must be numeric").WithDetails(map[string]any{"field": key})
	}
	return &v, nil
}
