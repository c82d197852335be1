// SPDX-License-Identifier: MIT
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"spectra/internal/config"
	"spectra/internal/player"
	"spectra/internal/testutil"
	"spectra/internal/visual"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newRouter(t *testing.T) (*gin.Engine, *player.Player) {
	t.Helper()
	cfg := config.Default()
	cfg.Audio.Headless = true
	cfg.Playback.PollInterval = time.Hour
	p, err := player.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return NewRouter(p, false), p
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func upload(t *testing.T, r http.Handler, name, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/asset", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func snapshot(t *testing.T, w *httptest.ResponseRecorder) player.Snapshot {
	t.Helper()
	var s player.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s), w.Body.String())
	return s
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())
	return e.Error
}

func TestStateBeforeLoad(t *testing.T) {
	r, _ := newRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	s := snapshot(t, w)
	assert.False(t, s.Loaded)
	assert.Equal(t, 1.0, s.Playback.Rate)

	w = do(t, r, http.MethodPost, "/api/v1/transport/play", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "graph_not_ready", errorCode(t, w))
}

func TestUploadStatusMapping(t *testing.T) {
	r, _ := newRouter(t)
	wav := testutil.WAVBytes(t, 22050, 2, 0.25, 440)

	tests := []struct {
		name        string
		file        string
		contentType string
		data        []byte
		status      int
	}{
		{"text file", "notes.txt", "text/plain", []byte("hello"), http.StatusUnsupportedMediaType},
		{"corrupt audio", "broken.wav", "audio/wav", []byte{0, 1, 2, 3}, http.StatusUnprocessableEntity},
		{"declared type", "tone.wav", "audio/wav", wav, http.StatusCreated},
		{"sniffed type", "tone", "application/octet-stream", wav, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := upload(t, r, tt.file, tt.contentType, tt.data)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	s := snapshot(t, do(t, r, http.MethodGet, "/api/v1/state", ""))
	assert.Equal(t, "tone", s.Asset.Name)
	assert.InDelta(t, 0.25, s.Playback.Duration, 1e-3)
}

func TestUploadMissingField(t *testing.T) {
	r, _ := newRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/asset", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransportRoutes(t *testing.T) {
	r, _ := newRouter(t)
	require.Equal(t, http.StatusCreated, upload(t, r, "tone.wav", "audio/wav", testutil.WAVBytes(t, 44100, 1, 2, 440)).Code)

	s := snapshot(t, do(t, r, http.MethodPost, "/api/v1/transport/play", ""))
	assert.True(t, s.Playback.Playing)

	s = snapshot(t, do(t, r, http.MethodPut, "/api/v1/transport/rate", `{"rate": 5}`))
	assert.Equal(t, 2.0, s.Playback.Rate)

	s = snapshot(t, do(t, r, http.MethodPut, "/api/v1/transport/position", `{"position": 1.5}`))
	assert.Equal(t, 1.5, s.Playback.Position)
	s = snapshot(t, do(t, r, http.MethodPut, "/api/v1/transport/position", `{"delta": -5}`))
	assert.Zero(t, s.Playback.Position)

	s = snapshot(t, do(t, r, http.MethodPut, "/api/v1/transport/reverse", ""))
	assert.True(t, s.Playback.Reversed)
	s = snapshot(t, do(t, r, http.MethodPut, "/api/v1/transport/reverse", `{"enabled": false}`))
	assert.False(t, s.Playback.Reversed)

	s = snapshot(t, do(t, r, http.MethodPut, "/api/v1/transport/loop", ""))
	assert.True(t, s.Playback.Looping)
	s = snapshot(t, do(t, r, http.MethodPut, "/api/v1/transport/shuffle", `{"enabled": true}`))
	assert.True(t, s.Playback.ShuffleRequested)

	s = snapshot(t, do(t, r, http.MethodPost, "/api/v1/transport/toggle", ""))
	assert.False(t, s.Playback.Playing)
	s = snapshot(t, do(t, r, http.MethodPost, "/api/v1/transport/pause", ""))
	assert.False(t, s.Playback.Playing)
}

func TestTransportBadInput(t *testing.T) {
	r, _ := newRouter(t)

	for _, tt := range []struct{ path, body string }{
		{"/api/v1/transport/rate", `{}`},
		{"/api/v1/transport/rate", `{"rate": "fast"}`},
		{"/api/v1/transport/position", `{}`},
		{"/api/v1/volume", `not json`},
		{"/api/v1/effects/bass", `{}`},
		{"/api/v1/effects/bands/x", `{"gain_db": 1}`},
		{"/api/v1/visualization", `{}`},
	} {
		w := do(t, r, http.MethodPut, tt.path, tt.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%s %s", tt.path, tt.body)
	}
}

func TestVolumeAndMute(t *testing.T) {
	r, _ := newRouter(t)

	s := snapshot(t, do(t, r, http.MethodPut, "/api/v1/volume", `{"volume": 1.7}`))
	assert.Equal(t, 1.0, s.Playback.Volume)
	s = snapshot(t, do(t, r, http.MethodPut, "/api/v1/volume", `{"volume": 0.25}`))
	assert.Equal(t, 0.25, s.Playback.Volume)

	s = snapshot(t, do(t, r, http.MethodPut, "/api/v1/mute", ""))
	assert.True(t, s.Playback.Muted)
	s = snapshot(t, do(t, r, http.MethodPut, "/api/v1/mute", `{"enabled": false}`))
	assert.False(t, s.Playback.Muted)
}

func TestEffectsRoutes(t *testing.T) {
	r, p := newRouter(t)

	w := do(t, r, http.MethodPut, "/api/v1/effects/bass", `{"gain_db": -30}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, -10.0, p.Effects().State().BassDB)

	do(t, r, http.MethodPut, "/api/v1/effects/treble", `{"gain_db": 4.5}`)
	assert.Equal(t, 4.5, p.Effects().State().TrebleDB)

	w = do(t, r, http.MethodPut, "/api/v1/effects/bands/4", `{"gain_db": 20}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 12.0, p.Effects().State().BandsDB[4])

	w = do(t, r, http.MethodPut, "/api/v1/effects/bands/5", `{"gain_db": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Bands []struct {
			Label  string  `json:"label"`
			GainDB float64 `json:"gain_db"`
		} `json:"bands"`
	}
	w = do(t, r, http.MethodGet, "/api/v1/effects", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Bands, 5)
	assert.Equal(t, "3.5kHz", body.Bands[4].Label)

	do(t, r, http.MethodDelete, "/api/v1/effects", "")
	assert.Zero(t, p.Effects().State().BassDB)
}

func TestVisualizationRoute(t *testing.T) {
	r, p := newRouter(t)

	w := do(t, r, http.MethodPut, "/api/v1/visualization", `{"type": "Wave", "quality": "low"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, visual.Config{Type: visual.Wave, BinCount: 64}, p.Visualization())

	w = do(t, r, http.MethodPut, "/api/v1/visualization", `{"type": "circular", "quality": "extreme"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, visual.Wave, p.Visualization().Type, "nothing applied on a bad request")

	w = do(t, r, http.MethodGet, "/api/v1/levels", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRenderStateWebSocket(t *testing.T) {
	r, p := newRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	// The client registers asynchronously; keep rendering until a frame lands.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				p.Step(0.5)
			}
		}
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	var state visual.RenderState
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&state))
	assert.Equal(t, visual.Bars, state.Type)
	assert.Len(t, state.Bars, 128)
}

func TestServerLifecycle(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, goleak.IgnoreCurrent())

	s, err := Listen("127.0.0.1:0", http.NotFoundHandler())
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- s.Serve() }()

	resp, err := http.Get("http://" + s.Addr() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, <-done)
	http.DefaultClient.CloseIdleConnections()
}
