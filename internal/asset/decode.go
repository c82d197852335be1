// SPDX-License-Identifier: MIT
package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"spectra/internal/log"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
)

const (
	containerWAV    = "audio/wav"
	containerMP3    = "audio/mpeg"
	containerFLAC   = "audio/flac"
	containerVorbis = "audio/ogg"

	// Frames pulled per Stream call while draining a compressed decoder.
	drainChunk = 4096
)

// WAV format tags accepted by the PCM path.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

var logger = log.Named("asset")

// IsAudioMIME reports whether a declared MIME type is acceptable.
func IsAudioMIME(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "audio/")
}

// Decode validates the declared MIME type, sniffs the container and decodes
// the whole file into memory. Cancelling ctx aborts a long decode and returns
// ctx.Err().
func Decode(ctx context.Context, data []byte, mimeType, name string) (*Asset, error) {
	if !IsAudioMIME(mimeType) {
		return nil, &FileTypeError{MIMEType: mimeType}
	}
	if len(data) == 0 {
		return nil, &DecodeError{Err: errors.New("empty input")}
	}

	detected := mimetype.Detect(data)
	var (
		container string
		frames    [][2]float64
		format    beep.Format
		err       error
	)
	switch {
	case detected.Is(containerWAV):
		container = containerWAV
		frames, format, err = decodeWAV(ctx, data)
	case detected.Is(containerMP3):
		container = containerMP3
		frames, format, err = decodeStream(ctx, func() (beep.StreamSeekCloser, beep.Format, error) {
			return mp3.Decode(io.NopCloser(bytes.NewReader(data)))
		})
	case detected.Is(containerFLAC):
		container = containerFLAC
		frames, format, err = decodeStream(ctx, func() (beep.StreamSeekCloser, beep.Format, error) {
			return flac.Decode(bytes.NewReader(data))
		})
	case detected.Is(containerVorbis), detected.Is("application/ogg"):
		container = containerVorbis
		frames, format, err = decodeStream(ctx, func() (beep.StreamSeekCloser, beep.Format, error) {
			return vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
		})
	default:
		return nil, &DecodeError{Format: detected.String(), Err: errors.New("unsupported container")}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var de *DecodeError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, &DecodeError{Format: container, Err: err}
	}
	if len(frames) == 0 {
		return nil, &DecodeError{Format: container, Err: errors.New("no audio frames")}
	}

	a := &Asset{
		ID:        uuid.New(),
		Name:      name,
		MIMEType:  mimeType,
		Container: container,
		Format:    format,
		Frames:    frames,
		Meta:      readMetadata(data),
	}
	logger.Infof("decoded %q (%s, %d Hz, %d ch, %.2fs)", name, container, format.SampleRate, format.NumChannels, a.Seconds())
	return a, nil
}

// decodeWAV reads integer PCM through go-audio/wav and normalizes it.
func decodeWAV(ctx context.Context, data []byte) ([][2]float64, beep.Format, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, beep.Format{}, &DecodeError{Format: containerWAV, Err: errors.New("invalid RIFF/WAVE header")}
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, beep.Format{}, &DecodeError{Format: containerWAV, Err: fmt.Errorf("unsupported encoding tag %d", d.WavAudioFormat)}
	}
	if err := ctx.Err(); err != nil {
		return nil, beep.Format{}, err
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, beep.Format{}, err
	}
	channels := int(d.NumChans)
	bitDepth := int(d.BitDepth)
	if channels <= 0 || bitDepth <= 0 || bitDepth > 32 {
		return nil, beep.Format{}, &DecodeError{Format: containerWAV, Err: fmt.Errorf("bad format: %d channels, %d bits", channels, bitDepth)}
	}

	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	offset := 0
	if bitDepth == 8 {
		// 8-bit WAV is unsigned.
		offset = 128
	}

	n := len(buf.Data) / channels
	frames := make([][2]float64, n)
	for i := range n {
		if i%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, beep.Format{}, err
			}
		}
		l := float64(buf.Data[i*channels]-offset) * scale
		r := l
		if channels > 1 {
			r = float64(buf.Data[i*channels+1]-offset) * scale
		}
		frames[i] = [2]float64{l, r}
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(d.SampleRate),
		NumChannels: channels,
		Precision:   (bitDepth + 7) / 8,
	}
	return frames, format, nil
}

// decodeStream drains a beep decoder into memory.
func decodeStream(ctx context.Context, open func() (beep.StreamSeekCloser, beep.Format, error)) ([][2]float64, beep.Format, error) {
	s, format, err := open()
	if err != nil {
		return nil, beep.Format{}, err
	}
	defer s.Close()

	frames := make([][2]float64, 0, max(s.Len(), 0))
	chunk := make([][2]float64, drainChunk)
	for {
		if err := ctx.Err(); err != nil {
			return nil, beep.Format{}, err
		}
		n, ok := s.Stream(chunk)
		frames = append(frames, chunk[:n]...)
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, beep.Format{}, err
	}
	return frames, format, nil
}

func readMetadata(data []byte) Metadata {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		// Most files without tags land here; not an error for playback.
		logger.Debugf("no tags: %v", err)
		return Metadata{}
	}
	return Metadata{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Tag:    string(m.Format()),
	}
}
