package service

import "errors"

var (
	ErrSameToken    = errors.New("src and dst are equal")
	ErrNotTestToken = errors.New("token has no faucet")
	ErrNotAPair     = errors.New("address is not a pair")
)
