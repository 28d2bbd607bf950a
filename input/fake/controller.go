// Package fake implements a fake operator controller.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/fieldnav/input"
)

// Controller is a gamepad whose axes are set by the caller.
type Controller struct {
	mu     sync.Mutex
	axes   map[input.ControlCode]*atomic.Float64
	events []input.Event

	// Fail makes Axes return an error while set.
	Fail atomic.Bool
}

// NewController returns a controller with every stick centered.
func NewController() *Controller {
	c := &Controller{axes: map[input.ControlCode]*atomic.Float64{}}
	for _, code := range input.Sticks {
		c.axes[code] = atomic.NewFloat64(0)
	}
	return c
}

// Set moves an axis.
func (c *Controller) Set(code input.ControlCode, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.axes[code]
	if !ok {
		v = atomic.NewFloat64(0)
		c.axes[code] = v
	}
	v.Store(value)
	c.events = append(c.events, input.Event{Time: time.Now(), Code: code, Value: value})
}

// Release centers every axis.
func (c *Controller) Release() {
	for _, code := range input.Sticks {
		c.Set(code, 0)
	}
}

// Events returns every axis change so far.
func (c *Controller) Events() []input.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]input.Event(nil), c.events...)
}

// Axes returns the current axis values.
func (c *Controller) Axes(ctx context.Context) (map[input.ControlCode]float64, error) {
	if c.Fail.Load() {
		return nil, errors.New("controller disconnected")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[input.ControlCode]float64, len(c.axes))
	for code, v := range c.axes {
		out[code] = v.Load()
	}
	return out, nil
}
