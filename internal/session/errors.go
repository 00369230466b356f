package session

import (
	"errors"
	"fmt"

	"github.com/fakeyudi/moodwatch/internal/api"
	"github.com/fakeyudi/moodwatch/internal/video"
)

var (
	// ErrBusy is returned by Start unless the controller is idle.
	ErrBusy = errors.New("session controller busy")
	// ErrStartAborted is returned by Start when Stop cancelled it.
	ErrStartAborted = errors.New("session start aborted")
)

// DefaultStartMessage is used when the service gives no reason for a failed start.
const DefaultStartMessage = "Failed to start session"

// SessionStartError means the service refused, or could not be asked, to start a session.
type SessionStartError struct {
	Message string
	Err     error
}

func (e *SessionStartError) Error() string { return e.Message }

func (e *SessionStartError) Unwrap() error { return e.Err }

// CameraUnavailableError means the video source for Mode could not be acquired.
type CameraUnavailableError struct {
	Mode video.Mode
	Err  error
}

func (e *CameraUnavailableError) Error() string {
	return fmt.Sprintf("camera unavailable (%s video): %v", e.Mode, e.Err)
}

func (e *CameraUnavailableError) Unwrap() error { return e.Err }

// SummaryFetchError is a failed server-pull cycle. It never ends the session.
type SummaryFetchError struct {
	Generation uint64
	Err        error
}

func (e *SummaryFetchError) Error() string {
	return fmt.Sprintf("fetching emotion summary: %v", e.Err)
}

func (e *SummaryFetchError) Unwrap() error { return e.Err }

// PredictError is a failed client-push cycle. It never ends the session.
type PredictError struct {
	Generation uint64
	Err        error
}

func (e *PredictError) Error() string {
	return fmt.Sprintf("predicting emotions: %v", e.Err)
}

func (e *PredictError) Unwrap() error { return e.Err }

// SessionStopError means the service did not confirm the stop. Local teardown has
// already happened when it is returned.
type SessionStopError struct {
	Err error
}

func (e *SessionStopError) Error() string {
	return fmt.Sprintf("stopping session: %v", e.Err)
}

func (e *SessionStopError) Unwrap() error { return e.Err }

// startError maps a failed /start_session call to a SessionStartError carrying
// the service's message when it sent one.
func startError(resp *api.StartResponse, err error) *SessionStartError {
	msg := ""
	if resp != nil {
		msg = resp.Message
	}
	var se *api.StatusError
	if errors.As(err, &se) {
		msg = se.Message
	}
	if msg == "" {
		msg = DefaultStartMessage
	}
	return &SessionStartError{Message: msg, Err: err}
}
