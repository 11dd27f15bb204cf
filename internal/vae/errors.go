package vae

import "errors"

// Construction errors.
var (
	// ErrNilBuilder is returned by New when no builder is supplied.
	ErrNilBuilder = errors.New("vae: nil builder")
	// ErrMissingEncoder is returned when the builder produced no encoder.
	ErrMissingEncoder = errors.New("vae: builder returned no encoder")
	// ErrMissingDecoder is returned when the builder produced no decoder.
	ErrMissingDecoder = errors.New("vae: builder returned no decoder")
	// ErrContractViolation is returned when the encoder or decoder output
	// shapes do not match the configuration.
	ErrContractViolation = errors.New("vae: encoder/decoder contract violation")
	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("vae: invalid config")
)

// Step errors.
var (
	// ErrNoOptimizer is returned by TrainStep before Compile was called.
	ErrNoOptimizer = errors.New("vae: no optimizer attached, call Compile first")
	// ErrMissingGradient is returned when a trainable parameter received
	// no gradient from the total loss.
	ErrMissingGradient = errors.New("vae: missing gradient")
	// ErrNonFiniteLoss is returned by CheckFinite for NaN or Inf losses.
	ErrNonFiniteLoss = errors.New("vae: non-finite loss")
)
