package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Third-party service errors
var (
	ErrUploadFailed       = errors.New("image upload failed")
	ErrUploadUnavailable  = errors.New("image host not configured")
	ErrNotificationFailed = errors.New("notification failed")
)

// Configuration & Environment Errors
var (
	ErrConfigMissing = errors.New("configuration missing")
	ErrConfigInvalid = errors.New("configuration invalid")
)

func NewUploadError(filename string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrUploadFailed,
		Details:    fmt.Sprintf("Failed to upload %s", filename),
		Cause:      cause,
		Field:      "image",
	}
}

func NewUploadUnavailableError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrUploadUnavailable,
		Details:    "Set IMAGE_BUCKET to accept file attachments",
		Field:      "image",
	}
}

func NewNotificationError(service string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrNotificationFailed,
		Details:    fmt.Sprintf("%s notification failed", service),
		Cause:      cause,
	}
}

func NewConfigMissingError(key string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrConfigMissing,
		Details:    fmt.Sprintf("%s is required", key),
		Field:      key,
	}
}

func NewConfigError(key string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrConfigInvalid,
		Details:    fmt.Sprintf("Invalid value for %s", key),
		Cause:      cause,
		Field:      key,
	}
}

func IsUploadError(err error) bool {
	return errors.Is(err, ErrUploadFailed)
}

func IsUploadUnavailableError(err error) bool {
	return errors.Is(err, ErrUploadUnavailable)
}

func IsNotificationError(err error) bool {
	return errors.Is(err, ErrNotificationFailed)
}

func IsConfigMissingError(err error) bool {
	return errors.Is(err, ErrConfigMissing)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigInvalid)
}
