package stream

import "fmt"

// StreamError reports that the model stream ended abnormally.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("model stream failed: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// PublishError reports that creating or updating the visible message failed.
type PublishError struct {
	Op  string // "create" or "update"
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing reply (%s): %v", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
