package config

import "errors"

var (
	// ErrUnknownNetwork indicates that NETWORK names a network that is neither
	// built in nor listed in NETWORKS_FILE.
	ErrUnknownNetwork = errors.New("unknown network")
	// ErrInvalidSlippage indicates that SLIPPAGE_BPS is not an integer in
	// [0, 10000].
	ErrInvalidSlippage = errors.New("invalid SLIPPAGE_BPS: want 0..10000")
	// ErrInvalidBool indicates that a boolean variable could not be parsed.
	ErrInvalidBool = errors.New("invalid boolean value")
	// ErrInvalidAddress indicates that DEPLOYER is not a hex address.
	ErrInvalidAddress = errors.New("invalid DEPLOYER address")
	// ErrInvalidLogFormat indicates that LOG_FORMAT is neither text nor json.
	ErrInvalidLogFormat = errors.New("invalid LOG_FORMAT: want text or json")
)
