// Package pipeline orchestrates a single conversational turn: context
// retrieval, prompt enhancement, text-to-image generation, and image-to-3D
// conversion, with session lifecycle policy applied around the calls.
package pipeline

import "errors"

var (
	// ErrUpstream classifies a failed call to an external generation API
	// (transport error, non-OK status, or open circuit). It is fatal to the
	// turn and is the only error class that also ends the session —
	// replacing the old policy of matching "API call failed" in message
	// text.
	ErrUpstream = errors.New("upstream generation API failure")

	// ErrEmptyResult classifies a generation response that succeeded at the
	// transport level but carried no usable payload. Fatal to the turn
	// only; the session continues.
	ErrEmptyResult = errors.New("generation returned no result")
)
