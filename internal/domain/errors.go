package domain

import "fmt"

// DecodeError reports raw input that is missing or not a JSON array of posts.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode raw posts from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ExtractionParseError reports a metadata reply that could not be parsed.
type ExtractionParseError struct {
	Response string
	Err      error
}

func (e *ExtractionParseError) Error() string {
	return fmt.Sprintf("unable to parse metadata response: %v", e.Err)
}

func (e *ExtractionParseError) Unwrap() error { return e.Err }

// UnificationParseError reports a tag unification reply that could not be parsed.
type UnificationParseError struct {
	Response string
	Err      error
}

func (e *UnificationParseError) Error() string {
	return fmt.Sprintf("unable to parse tag unification response: %v", e.Err)
}

func (e *UnificationParseError) Unwrap() error { return e.Err }

// StoreLoadError reports a processed corpus that could not be loaded.
type StoreLoadError struct {
	Path string
	Err  error
}

func (e *StoreLoadError) Error() string {
	return fmt.Sprintf("failed to load processed posts from %s: %v", e.Path, e.Err)
}

func (e *StoreLoadError) Unwrap() error { return e.Err }
