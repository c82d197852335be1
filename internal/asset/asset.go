// SPDX-License-Identifier: MIT

// Package asset turns raw file bytes into an immutable, fully decoded PCM
// buffer. Decoding happens once per loaded file; playback only ever reads
// from the decoded frames.
package asset

import (
	"time"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
)

// Metadata is best-effort tag information. Empty fields mean the container
// carried no tag for them.
type Metadata struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Tag    string `json:"tag,omitempty"` // tag format, e.g. ID3v2.4
}

// Asset is a decoded audio file. Frames are normalized to [-1, 1] and always
// stereo; mono sources are duplicated into both channels.
type Asset struct {
	ID        uuid.UUID
	Name      string
	MIMEType  string // declared by the caller
	Container string // detected from content
	Format    beep.Format
	Frames    [][2]float64
	Meta      Metadata
}

// Len returns the number of frames.
func (a *Asset) Len() int {
	return len(a.Frames)
}

// Duration returns the playback length at the asset's own sample rate.
func (a *Asset) Duration() time.Duration {
	return a.Format.SampleRate.D(len(a.Frames))
}

// Seconds returns the duration in seconds.
func (a *Asset) Seconds() float64 {
	if a.Format.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.Frames)) / float64(a.Format.SampleRate)
}

// FrameAt converts a position in seconds to a frame index clamped to
// [0, Len()].
func (a *Asset) FrameAt(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	i := int(seconds * float64(a.Format.SampleRate))
	if i > len(a.Frames) {
		return len(a.Frames)
	}
	return i
}

// Info is the serializable summary of an asset.
type Info struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	MIMEType   string   `json:"mime_type"`
	Container  string   `json:"container"`
	SampleRate int      `json:"sample_rate"`
	Channels   int      `json:"channels"`
	Duration   float64  `json:"duration"`
	Meta       Metadata `json:"meta"`
}

// Info returns a summary suitable for the control API and UI.
func (a *Asset) Info() Info {
	return Info{
		ID:         a.ID.String(),
		Name:       a.Name,
		MIMEType:   a.MIMEType,
		Container:  a.Container,
		SampleRate: int(a.Format.SampleRate),
		Channels:   a.Format.NumChannels,
		Duration:   a.Seconds(),
		Meta:       a.Meta,
	}
}
