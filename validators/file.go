// Package validators contains request validation helpers
package validators

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/spf13/viper"
)

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrFileNameTooLong = errors.New("file name is too long")
	ErrNoFile          = errors.New("no file uploaded")
	ErrEmptyFile       = errors.New("file is empty")
)

const maxFileNameSize = 255

// FileValidator checks the parts of an upload that don't depend on its type
// and opens it. The returned code is only meaningful when err is not nil.
func FileValidator(fh *multipart.FileHeader) (int, multipart.File, error) {
	if fh == nil {
		return http.StatusBadRequest, nil, ErrNoFile
	}

	if len(fh.Filename) > maxFileNameSize {
		return http.StatusBadRequest, nil, ErrFileNameTooLong
	}

	if fh.Size <= 0 {
		return http.StatusBadRequest, nil, ErrEmptyFile
	}

	if maxFileSize := viper.GetInt64("upload.max_size"); maxFileSize > 0 && fh.Size > maxFileSize {
		return http.StatusRequestEntityTooLarge, nil, ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, err
	}

	return 0, f, nil
}
