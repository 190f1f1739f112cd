package cache

import (
	"fmt"
)

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

// AreasKey holds the JSON list of distinct incident areas.
func AreasKey() string {
	return "gemba:areas"
}
