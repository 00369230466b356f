package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Summary is the emotion snapshot returned by /get_emotion_summary and /predict_emotion.
type Summary struct {
	TotalFaces int            `json:"total_faces"`
	Emotions   map[string]int `json:"emotions"`
}

// StartResponse is the body of /start_session.
type StartResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// PredictRequest is the body of /predict_emotion.
type PredictRequest struct {
	Image string `json:"image"` // data URI, e.g. data:image/jpeg;base64,...
}

// errorBody is the JSON shape the service uses for failures.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrLoginFailed is returned by Login when the service bounces back to the login page.
var ErrLoginFailed = errors.New("login failed: invalid username or password")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string // service-provided message, empty if the body had none
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// IsUnauthorized reports whether err is a 401 from the service.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}
