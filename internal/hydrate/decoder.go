// Package hydrate converts raw project payloads into strongly typed
// documents, with hook points for payload migration before decoding and
// validation after.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context carries identifiers tied to a payload being hydrated.
type Context struct {
	// Source names where the payload came from (file path, store key).
	Source string
	// Version is the document schema version declared by the payload, when
	// known before decoding.
	Version int
}

// PreHook lets callers mutate or normalise the payload before decoding.
// Version migrations live here.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the hydrated document after
// decoding.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts raw payloads into typed documents.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber during decoding.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDisallowUnknownFields invokes json.Decoder.DisallowUnknownFields.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// NewDecoder constructs a Decoder with the supplied options.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode hydrates payload into T, running pre hooks against the raw map and
// post hooks against the decoded document.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		payload = map[string]any{}
	}

	working := payload
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, working)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre hook: %w", err)
		}
		if next != nil {
			working = next
		}
	}

	encoded, err := json.Marshal(working)
	if err != nil {
		return zero, fmt.Errorf("hydrate: encode payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	for _, configure := range d.configureDec {
		configure(dec)
	}
	var out T
	if err := dec.Decode(&out); err != nil {
		return zero, fmt.Errorf("hydrate: decode payload: %w", err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &out); err != nil {
			return zero, fmt.Errorf("hydrate: post hook: %w", err)
		}
	}
	return out, nil
}
