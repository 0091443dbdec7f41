//go:build !linux && !tinygo

package clock

import "time"

var start = time.Now()

func monotonicNanos() int64 {
	return int64(time.Since(start))
}
