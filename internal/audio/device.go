// Package audio adapts malgo capture/playback device callbacks to the
// pipeline's ring-buffer stage contract. Device enumeration and
// selection are an external collaborator's job (UI, CLI flags); this
// package only opens a stream against a device handle it's handed.
package audio

import (
	"fmt"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// Device identifies an already-chosen capture or playback device. The
// zero value (a nil id) selects the platform default device.
type Device struct {
	id   unsafe.Pointer
	Name string
}

// Context wraps the malgo audio context shared by every stream the
// pipeline opens. It is itself an external collaborator's resource:
// callers create one context and pass it to every pipeline they build.
type Context struct {
	ctx *malgo.AllocatedContext
}

// NewContext initializes the platform audio backend.
func NewContext() (*Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &Context{ctx: ctx}, nil
}

// Devices lists the devices of the given malgo device type (Capture or
// Playback), for an external collaborator (device-selection UI/CLI) to
// present to the user.
func (c *Context) Devices(deviceType malgo.DeviceType) ([]Device, error) {
	infos, err := c.ctx.Devices(deviceType)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	devices := make([]Device, len(infos))
	for i := range infos {
		devices[i] = Device{id: infos[i].ID.Pointer(), Name: infos[i].Name()}
	}
	return devices, nil
}

// Close releases the audio backend. Idempotent.
func (c *Context) Close() {
	if c.ctx == nil {
		return
	}
	_ = c.ctx.Uninit()
	c.ctx.Free()
	c.ctx = nil
}
