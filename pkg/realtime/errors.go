package realtime

import "errors"

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("access denied")
	ErrValidation     = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrStore          = errors.New("store failure")

	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("connection send buffer is full")
)

const genericClientError = "Something went wrong, please try again"

// ClientError is the text sent back in message-error. Only errors built by this
// package from known categories are echoed; store and unexpected failures are not.
func ClientError(err error) string {
	switch {
	case errors.Is(err, ErrAuthorization), errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return err.Error()
	case errors.Is(err, ErrAuthentication):
		return ErrAuthentication.Error()
	default:
		return genericClientError
	}
}
