package http

import (
	"net/http"
)

// Response represents a fully received HTTP response
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header

	// BytesRead is the size of the drained body
	BytesRead int64
}
