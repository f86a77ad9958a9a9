// Package domain defines the core interfaces and types for LAVS.
package domain

import (
	"errors"
	"time"
)

// ErrEmptyArtifact is returned when a submission carries neither bytes nor a
// URL. It is the only error that crosses the pipeline boundary; every other
// failure is absorbed into layer evidence.
var ErrEmptyArtifact = errors.New("artifact is empty: no bytes and no url")

// ContentType is the classification tag assigned to a submitted artifact.
// It is set once by the classifier and immutable afterwards.
type ContentType string

const (
	ContentImage   ContentType = "image"
	ContentVideo   ContentType = "video"
	ContentAudio   ContentType = "audio"
	ContentURL     ContentType = "url"
	ContentUnknown ContentType = "unknown"
)

// Artifact is a single submission to be verified: either a byte payload with
// an untrusted declared MIME hint, or a URL.
type Artifact struct {
	// ID identifies the verification request.
	ID string `json:"id"`

	// Bytes is the raw payload for file submissions.
	Bytes []byte `json:"-"`

	// DeclaredMIME is the caller-declared MIME type. It is never trusted for
	// classification; it only feeds the mime-mismatch metadata check.
	DeclaredMIME string `json:"declaredMime,omitempty"`

	// Filename as uploaded, informational only.
	Filename string `json:"filename,omitempty"`

	// URL for link submissions.
	URL string `json:"url,omitempty"`

	// Type is filled in by the classifier.
	Type ContentType `json:"type"`

	// ClassifierHint explains how the type was decided.
	ClassifierHint string `json:"classifierHint,omitempty"`

	// ReceivedAt is when the request entered the pipeline.
	ReceivedAt time.Time `json:"receivedAt"`
}

// Empty reports whether the artifact carries nothing to analyze.
func (a *Artifact) Empty() bool {
	return len(a.Bytes) == 0 && a.URL == ""
}
