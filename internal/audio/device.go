// SPDX-License-Identifier: MIT
package audio

import (
	"time"

	"github.com/gordonklaus/portaudio"
)

// Device represents an audio device.
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowLatency        time.Duration // default low output latency
	HighLatency       time.Duration // default high output latency
}

// IsOutput reports whether the device can play stereo or mono audio.
func (d Device) IsOutput() bool {
	return d.MaxOutputChannels > 0
}

func toDevice(id int, info *portaudio.DeviceInfo) Device {
	d := Device{
		ID:                id,
		Name:              info.Name,
		MaxInputChannels:  info.MaxInputChannels,
		MaxOutputChannels: info.MaxOutputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
		LowLatency:        info.DefaultLowOutputLatency,
		HighLatency:       info.DefaultHighOutputLatency,
	}
	if info.HostApi != nil {
		d.HostAPI = info.HostApi.Name
	}
	return d
}
