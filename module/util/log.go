package util

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogProgressFunc adds to the progress. It can be called concurrently; negative
// values are ignored.
type LogProgressFunc func(add int)

type LogProgressConfig struct {
	// Message prefixes every line: `<Message> progress <current>/<total> (<pct>%)`.
	Message string
	// Total is the value at which progress is 100%.
	Total int
	// Ticks is the number of lines logged between 0% and 100%, both included.
	// The default of 11 logs every 10%.
	Ticks int
}

// DefaultLogProgressConfig logs every 10%.
func DefaultLogProgressConfig(message string, total int) LogProgressConfig {
	return LogProgressConfig{
		Message: message,
		Total:   total,
		Ticks:   11,
	}
}

// LogProgress logs 0% immediately and returns a function advancing the progress.
// A line is logged each time a tick is crossed, together with the elapsed time
// and a linear estimate of the time left.
func LogProgress(log zerolog.Logger, config LogProgressConfig) LogProgressFunc {
	start := time.Now()
	total := config.Total
	ticks := config.Ticks
	if ticks < 2 {
		ticks = 2
	}

	logAt := func(current int) {
		elapsed := time.Since(start)
		pct := 100.0
		if total > 0 {
			pct = float64(current) / float64(total) * 100
		}
		ev := log.Info().Dur("elapsed", elapsed.Round(time.Second))
		if current < total && current > 0 {
			eta := time.Duration(float64(elapsed) / float64(current) * float64(total-current))
			ev = ev.Dur("eta", eta.Round(time.Second))
		}
		ev.Msgf("%s progress %d/%d (%.1f%%)", config.Message, current, total, pct)
	}

	// tick i is reached at ceil(i * total / (ticks-1))
	threshold := func(tick int) int {
		steps := ticks - 1
		return (tick*total + steps - 1) / steps
	}

	var mu sync.Mutex
	current := 0
	nextTick := 1

	logAt(0)
	return func(add int) {
		if add <= 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()

		current += add
		if current > total {
			current = total
		}
		reached := false
		for nextTick < ticks && current >= threshold(nextTick) {
			nextTick++
			reached = true
		}
		if reached {
			logAt(current)
		}
	}
}
