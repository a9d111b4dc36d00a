package domain

import "errors"

var (
	// ErrEmptyInput signals an empty or whitespace-only chat message.
	ErrEmptyInput = errors.New("empty input")
	// ErrOffTopic signals a message rejected by the topic keyword filter.
	ErrOffTopic = errors.New("off-topic message")
	// ErrInvalidImage signals an upload that does not decode as a raster image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrNoPoseDetected signals a valid image in which the model found no pose.
	ErrNoPoseDetected = errors.New("no pose detected")
	// ErrNoReferenceAvailable signals an empty reference catalog.
	ErrNoReferenceAvailable = errors.New("no reference poses available")
	// ErrVectorDimMismatch signals a landmark vector of unexpected length.
	ErrVectorDimMismatch = errors.New("landmark vector dimension mismatch")
	// ErrExtractorUnavailable signals a pose extractor backend failure.
	ErrExtractorUnavailable = errors.New("pose extractor unavailable")
	// ErrUpstream signals a chat upstream transport or timeout failure.
	ErrUpstream = errors.New("upstream request failed")
	// ErrInvalidUpstreamResponse signals a well-formed upstream reply
	// missing the expected completion.
	ErrInvalidUpstreamResponse = errors.New("invalid upstream response")
)
