package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoAccount indicates the user has no connected marketplace account
	ErrNoAccount = errors.New("no connected marketplace account")

	// ErrMissingSellerID indicates the account has no marketplace seller id
	ErrMissingSellerID = errors.New("marketplace account has no seller id")

	// ErrNoItems indicates the seller has no active listings to import
	ErrNoItems = errors.New("no marketplace items found")

	// ErrInvalidGrant indicates the marketplace rejected a refresh token permanently
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrUnknownConfigKey indicates a sync config key outside the known set
	ErrUnknownConfigKey = errors.New("unknown sync config key")

	// ErrInvalidConfigValue indicates a sync config value that does not parse for its key
	ErrInvalidConfigValue = errors.New("invalid sync config value")
)
