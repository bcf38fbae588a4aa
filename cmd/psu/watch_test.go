package psu

import (
	"github.com/markusressel/psu2go/internal/data"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestWatcher_Append(t *testing.T) {
	// GIVEN
	w := newWatcher(3, 2)

	// WHEN
	w.append(data.Float(1), data.Float(0.1))
	w.append(data.Float(2), nil)
	w.append(data.Float(3), data.Float(0.3))
	w.append(data.Float(4), data.Float(0.4))

	// THEN
	assert.Equal(t, []float64{2, 3, 4}, w.voltage)
	assert.Equal(t, []float64{0.1, 0.3, 0.4}, w.current)
	avg, ok := w.voltageAvg.Avg()
	assert.True(t, ok)
	assert.InDelta(t, 3.5, avg, 0.0001)
}

func TestWatcher_Append_NoValueYet(t *testing.T) {
	// GIVEN
	w := newWatcher(3, 2)

	// WHEN
	w.append(nil, nil)

	// THEN
	assert.Empty(t, w.voltage)
	assert.Empty(t, w.current)
	assert.Equal(t, "--.-- V\n\n--.-- A\n", w.render())
}

func TestWatcher_Render(t *testing.T) {
	// GIVEN
	w := newWatcher(10, 5)
	w.append(data.Float(5), data.Float(1))
	w.append(data.Float(5.5), data.Float(1.5))

	// WHEN
	result := w.render()

	// THEN
	assert.Contains(t, result, "5.500 V (max 5.500 V), avg 5.250 V")
	assert.Contains(t, result, "1.500 A (max 1.500 A), avg 1.250 A")
}
