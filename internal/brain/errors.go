package brain

import "fmt"

// UpstreamFetchError reports that an input to the context window (thread
// history, system prompt) could not be read.
type UpstreamFetchError struct {
	Source string // "thread_replies", "system_prompt"
	Err    error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Source, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}
