// Copyright 2025 James Ross
package scraper

import "github.com/marketintel/engine/internal/queue"

// wrapDriverError tags a scraper-level failure with the DriverError kind
// used by the job queue's error handling design (§7).
func wrapDriverError(msg string, cause error) error {
	return queue.NewError(queue.DriverError, msg, cause)
}

func wrapNetworkError(msg string, cause error) error {
	return queue.NewError(queue.NetworkError, msg, cause)
}
