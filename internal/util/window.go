package util

import (
	"github.com/asecurityteam/rolling"
	"sync"
)

func CreateRollingWindow(size int) *rolling.PointPolicy {
	return rolling.NewPointPolicy(rolling.NewWindow(size))
}

// GetWindowMax returns the max value in the window
func GetWindowMax(window *rolling.PointPolicy) float64 {
	return window.Reduce(rolling.Max)
}

// RollingAverage is an average over the last N appended values.
// Unlike a plain rolling.Avg it ignores slots that were never written.
type RollingAverage struct {
	mu      sync.Mutex
	window  *rolling.PointPolicy
	size    int
	samples int
}

func NewRollingAverage(size int) *RollingAverage {
	if size <= 0 {
		size = 1
	}
	return &RollingAverage{
		window: CreateRollingWindow(size),
		size:   size,
	}
}

func (r *RollingAverage) Append(value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.window.Append(value)
	if r.samples < r.size {
		r.samples++
	}
}

// Avg returns the average and false if no value was appended yet
func (r *RollingAverage) Avg() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.samples <= 0 {
		return 0, false
	}
	return r.window.Reduce(rolling.Sum) / float64(r.samples), true
}

func (r *RollingAverage) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.window = CreateRollingWindow(r.size)
	r.samples = 0
}
