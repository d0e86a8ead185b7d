// internal/app/system/limits/limits.go
package limits

// Request body size limits for the JSON API.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBody caps any JSON request body.
	MaxJSONBody = 64 << 10 // 64 KB

	// MaxActivityLimit caps the page size of audit trail queries.
	MaxActivityLimit = 200
)
