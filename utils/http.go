// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the price and balance feed clients. The client
// timeout is the only deadline applied; failed calls are surfaced to the
// user and never retried automatically.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// LamportsToSol converts a raw RPC balance to whole SOL.
func LamportsToSol(lamports uint64) float64 {
	return float64(lamports) / 1e9
}
