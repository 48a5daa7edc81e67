package model

import "fmt"

// InputErrorKind classifies why a document could not be read.
type InputErrorKind int

const (
	// InputUnknown is any extraction failure that is not classified below.
	InputUnknown InputErrorKind = iota
	// InputNotFound means the path does not exist.
	InputNotFound
	// InputCorrupt means the document could not be parsed, including
	// password-protected documents.
	InputCorrupt
)

func (k InputErrorKind) String() string {
	switch k {
	case InputNotFound:
		return "not_found"
	case InputCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// InputError reports a bad PDF path or an unreadable document.
type InputError struct {
	Kind InputErrorKind
	Path string
	Err  error
}

func (e *InputError) Error() string {
	switch e.Kind {
	case InputNotFound:
		return "File not found. Please provide a valid PDF path: " + e.Path
	case InputCorrupt:
		return "Error reading the PDF. Please ensure the file is not corrupted or password-protected: " + e.Path
	default:
		return fmt.Sprintf("An error occurred while processing the PDF %s: %v", e.Path, e.Err)
	}
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// RemoteServiceError reports a failed completion request: transport, auth,
// rate limiting, timeout, or a response with no usable candidate.
type RemoteServiceError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s API error: %v", e.Provider, e.Err)
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// ConfigError reports a missing or invalid configuration value.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// SimilarityError reports that the similarity backend could not score a pair.
type SimilarityError struct {
	Backend string
	Err     error
}

func (e *SimilarityError) Error() string {
	return fmt.Sprintf("similarity backend %s: %v", e.Backend, e.Err)
}

func (e *SimilarityError) Unwrap() error {
	return e.Err
}
