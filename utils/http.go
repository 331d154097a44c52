// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the shared client for upstream game API calls. Every call
// is bounded; a hung upstream surfaces as a transient outcome, never a
// stuck run.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
