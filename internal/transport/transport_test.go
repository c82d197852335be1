// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spectra/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Seq  int    `json:"seq"`
	Bins []byte `json:"bins"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	return conn
}

func TestWebSocketBroadcast(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	ws := NewWebSocketTransport()
	srv := httptest.NewServer(ws.Handler())

	a, b := dial(t, srv), dial(t, srv)
	require.Eventually(t, func() bool { return ws.Clients() == 2 }, time.Second, 5*time.Millisecond)

	// The caller's buffer is reused right after Send.
	f := frame{Seq: 1, Bins: []byte{1, 2, 3}}
	require.NoError(t, ws.Send(&f))
	f.Seq, f.Bins[0] = 99, 99

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var got frame
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, 1, got.Seq)
		assert.Equal(t, []byte{1, 2, 3}, got.Bins)
	}

	a.Close()
	assert.Eventually(t, func() bool { return ws.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, ws.Close())
	require.NoError(t, ws.Close())
	assert.ErrorIs(t, ws.Send(f), ErrClosed)
	b.Close()
	srv.Close()
}

func TestWebSocketRejectsAfterClose(t *testing.T) {
	ws := NewWebSocketTransport()
	require.NoError(t, ws.Close())

	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWebSocketMarshalError(t *testing.T) {
	ws := NewWebSocketTransport()
	defer ws.Close()
	assert.Error(t, ws.Send(make(chan int)))
}

type failing struct{ closed bool }

func (f *failing) Send(any) error { return errors.New("boom") }
func (f *failing) Close() error  { f.closed = true; return errors.New("close boom") }

func TestMulti(t *testing.T) {
	logT := NewLoggingTransport(2)
	bad := &failing{}
	m := Multi{logT, bad}

	err := m.Send(map[string]int{"a": 1})
	assert.ErrorContains(t, err, "boom")
	assert.NoError(t, Multi{logT}.Send(1))
	assert.Equal(t, uint64(2), logT.Sent())

	assert.Error(t, m.Close())
	assert.True(t, bad.closed)
}

func TestLoggingTransportNeverFails(t *testing.T) {
	lt := NewLoggingTransport(0)
	assert.NoError(t, lt.Send(make(chan int)))
	assert.NoError(t, lt.Send("ok"))
	assert.Equal(t, uint64(2), lt.Sent())
	assert.NoError(t, lt.Close())
}
