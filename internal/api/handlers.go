// SPDX-License-Identifier: MIT
package api

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"spectra/internal/graph"
	"spectra/internal/player"
	"spectra/internal/visual"

	"github.com/gin-gonic/gin"
)

type positionRequest struct {
	Position *float64 `json:"position"`
	Delta    *float64 `json:"delta"`
}

type rateRequest struct {
	Rate *float64 `json:"rate" binding:"required"`
}

// flagRequest sets a boolean. An empty body toggles it.
type flagRequest struct {
	Enabled *bool `json:"enabled"`
}

type volumeRequest struct {
	Volume *float64 `json:"volume" binding:"required"`
}

type gainRequest struct {
	GainDB *float64 `json:"gain_db" binding:"required"`
}

type visualizationRequest struct {
	Type    string `json:"type"`
	Quality string `json:"quality"`
}

// bind decodes the JSON body. With optional set, an empty body is accepted
// and leaves req untouched.
func bind(c *gin.Context, req any, optional bool) bool {
	if optional && c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (h *Handlers) state(c *gin.Context) {
	c.JSON(http.StatusOK, h.player.Snapshot())
}

// GetState returns the full player snapshot.
func (h *Handlers) GetState(c *gin.Context) {
	h.state(c)
}

// LoadAsset decodes the multipart "file" field and installs it. The declared
// type comes from the part header, or from the file name and content when
// the client sent none.
func (h *Handlers) LoadAsset(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "missing multipart field \"file\"")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		badRequest(c, "read upload: "+err.Error())
		return
	}
	if len(data) > MaxUploadBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "too_large",
			Message: fmt.Sprintf("file exceeds %d bytes", MaxUploadBytes),
		})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = player.MIMEType(header.Filename, data)
	}

	if _, err := h.player.Load(c.Request.Context(), data, mimeType, header.Filename); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.player.Snapshot())
}

// Play starts playback from the current position.
func (h *Handlers) Play(c *gin.Context) {
	if err := h.player.Transport().Play(); err != nil {
		fail(c, err)
		return
	}
	h.state(c)
}

// Pause stops playback and keeps the position.
func (h *Handlers) Pause(c *gin.Context) {
	if err := h.player.Transport().Pause(); err != nil {
		fail(c, err)
		return
	}
	h.state(c)
}

// Toggle flips between play and pause.
func (h *Handlers) Toggle(c *gin.Context) {
	if err := h.player.Transport().Toggle(); err != nil {
		fail(c, err)
		return
	}
	h.state(c)
}

// Seek moves to an absolute position or by a relative delta, in seconds.
func (h *Handlers) Seek(c *gin.Context) {
	var req positionRequest
	if !bind(c, &req, false) {
		return
	}

	var err error
	switch {
	case req.Position != nil && finite(*req.Position):
		err = h.player.Transport().Seek(*req.Position)
	case req.Delta != nil && finite(*req.Delta):
		err = h.player.Transport().SeekBy(*req.Delta)
	default:
		badRequest(c, "position or delta is required")
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	h.state(c)
}

// SetRate sets the playback rate, clamped to [0.5, 2].
func (h *Handlers) SetRate(c *gin.Context) {
	var req rateRequest
	if !bind(c, &req, false) {
		return
	}
	if !finite(*req.Rate) {
		badRequest(c, "rate must be a finite number")
		return
	}
	if _, err := h.player.Transport().SetRate(*req.Rate); err != nil {
		fail(c, err)
		return
	}
	h.state(c)
}

// SetReverse sets or toggles reversed playback.
func (h *Handlers) SetReverse(c *gin.Context) {
	var req flagRequest
	if !bind(c, &req, true) {
		return
	}
	var err error
	if req.Enabled == nil {
		_, err = h.player.Transport().ToggleReverse()
	} else {
		err = h.player.Transport().SetReversed(*req.Enabled)
	}
	if err != nil {
		fail(c, err)
		return
	}
	h.state(c)
}

// SetLoop sets or toggles looping.
func (h *Handlers) SetLoop(c *gin.Context) {
	var req flagRequest
	if !bind(c, &req, true) {
		return
	}
	var err error
	if req.Enabled == nil {
		_, err = h.player.Transport().ToggleLoop()
	} else {
		err = h.player.Transport().SetLoop(*req.Enabled)
	}
	if err != nil {
		fail(c, err)
		return
	}
	h.state(c)
}

// SetShuffle sets or toggles the shuffle flag. It has no audible effect.
func (h *Handlers) SetShuffle(c *gin.Context) {
	var req flagRequest
	if !bind(c, &req, true) {
		return
	}
	if req.Enabled == nil {
		h.player.Transport().ToggleShuffle()
	} else {
		h.player.Transport().SetShuffle(*req.Enabled)
	}
	h.state(c)
}

// SetVolume sets the output volume, clamped to [0, 1].
func (h *Handlers) SetVolume(c *gin.Context) {
	var req volumeRequest
	if !bind(c, &req, false) {
		return
	}
	if !finite(*req.Volume) {
		badRequest(c, "volume must be a finite number")
		return
	}
	h.player.Transport().SetVolume(*req.Volume)
	h.state(c)
}

// SetMute sets or toggles mute.
func (h *Handlers) SetMute(c *gin.Context) {
	var req flagRequest
	if !bind(c, &req, true) {
		return
	}
	if req.Enabled == nil {
		h.player.Transport().ToggleMute()
	} else {
		h.player.Transport().SetMuted(*req.Enabled)
	}
	h.state(c)
}

func (h *Handlers) effects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state": h.player.Effects().State(),
		"bands": h.player.Effects().Bands(),
	})
}

// GetEffects returns the equalizer gains.
func (h *Handlers) GetEffects(c *gin.Context) {
	h.effects(c)
}

func (h *Handlers) gain(c *gin.Context) (float64, bool) {
	var req gainRequest
	if !bind(c, &req, false) {
		return 0, false
	}
	if !finite(*req.GainDB) {
		badRequest(c, "gain_db must be a finite number")
		return 0, false
	}
	return *req.GainDB, true
}

// SetBass sets the lowshelf gain, clamped to [-10, 10] dB.
func (h *Handlers) SetBass(c *gin.Context) {
	if db, ok := h.gain(c); ok {
		h.player.Effects().SetBass(db)
		h.effects(c)
	}
}

// SetTreble sets the highshelf gain, clamped to [-10, 10] dB.
func (h *Handlers) SetTreble(c *gin.Context) {
	if db, ok := h.gain(c); ok {
		h.player.Effects().SetTreble(db)
		h.effects(c)
	}
}

// SetBand sets one peaking band, clamped to [-12, 12] dB.
func (h *Handlers) SetBand(c *gin.Context) {
	band, err := strconv.Atoi(c.Param("band"))
	if err != nil {
		badRequest(c, "band must be an integer index")
		return
	}
	db, ok := h.gain(c)
	if !ok {
		return
	}
	if _, err := h.player.Effects().SetBand(band, db); err != nil {
		fail(c, err)
		return
	}
	h.effects(c)
}

// ResetEffects flattens every filter.
func (h *Handlers) ResetEffects(c *gin.Context) {
	h.player.Effects().Reset()
	h.effects(c)
}

func (h *Handlers) visualization(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"visualization": h.player.Visualization(),
		"quality":       h.player.Quality(),
	})
}

// GetVisualization returns the visualization type and analyzer quality.
func (h *Handlers) GetVisualization(c *gin.Context) {
	h.visualization(c)
}

// SetVisualization changes the type, the quality, or both. Both are
// validated before either is applied.
func (h *Handlers) SetVisualization(c *gin.Context) {
	var req visualizationRequest
	if !bind(c, &req, false) {
		return
	}
	if strings.TrimSpace(req.Type) == "" && strings.TrimSpace(req.Quality) == "" {
		badRequest(c, "type or quality is required")
		return
	}

	var (
		t   visual.Type
		q   graph.Quality
		err error
	)
	if req.Type != "" {
		if t, err = visual.ParseType(req.Type); err != nil {
			fail(c, err)
			return
		}
	}
	if req.Quality != "" {
		if q, err = graph.ParseQuality(req.Quality); err != nil {
			fail(c, err)
			return
		}
	}

	if t != "" {
		h.player.SetVisualization(t)
	}
	if q != "" {
		if err := h.player.SetQuality(q); err != nil {
			fail(c, err)
			return
		}
	}
	h.visualization(c)
}

// GetLevels returns the band meter reading.
func (h *Handlers) GetLevels(c *gin.Context) {
	c.JSON(http.StatusOK, h.player.Levels())
}
