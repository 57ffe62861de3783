// Package cooldown tracks how long a caller must wait after the upstream API
// answered 429, so repeated requests are answered locally until it expires.
package cooldown

import (
	"context"
	"math"
	"time"

	"github.com/ukydev/fleet-tolls/internal/environment"
)

// Store keeps cooldown deadlines by key.
type Store interface {
	Start(ctx context.Context, key string, d time.Duration) error
	Remaining(ctx context.Context, key string) (time.Duration, error)
	Clear(ctx context.Context, key string) error
}

// Key scopes a cooldown to one backend and one caller.
func Key(env environment.Name, fingerprint string) string {
	return string(env) + ":" + fingerprint
}

// Seconds rounds d up to whole seconds, the unit of Retry-After.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
