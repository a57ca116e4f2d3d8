package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidStateToken indicates the state token is missing, unknown,
	// expired out of the store, or already consumed
	ErrInvalidStateToken = errors.New("invalid state token")

	// ErrInvalidSignature indicates the state token's HMAC did not verify
	ErrInvalidSignature = errors.New("invalid state signature")

	// ErrStateTokenExpired indicates the payload exceeded its maximum age
	ErrStateTokenExpired = errors.New("state token expired")

	// ErrMalformedStatePayload indicates required flow fields are missing
	ErrMalformedStatePayload = errors.New("malformed state payload")

	// ErrUnknownPlatform indicates no connector is registered for the platform
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrCapabilityNotSupported indicates the connector does not implement
	// the requested optional operation
	ErrCapabilityNotSupported = errors.New("capability not supported")

	// ErrAgencyOAuthRequired indicates the agency has no active OAuth
	// connection to verify client access with
	ErrAgencyOAuthRequired = errors.New("agency oauth connection required")

	// ErrAlreadyVerified signals the verification is already complete.
	// It is an idempotent success signal, not a failure.
	ErrAlreadyVerified = errors.New("already verified")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)
