// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// Shared client for outbound calls (sheet exports, identity service).
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
