// SPDX-License-Identifier: MIT
package graph

import (
	"context"
	"testing"

	"spectra/internal/asset"
	"spectra/internal/testutil"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(opts ...ManagerOption) *Manager {
	return NewManager(beep.SampleRate(testRate), DefaultChain(), QualityMedium, DefaultAnalyzerOptions(), opts...)
}

func TestManagerLoadBuildsGraph(t *testing.T) {
	m := newTestManager()
	assert.False(t, m.Ready())
	assert.Nil(t, m.Asset())

	data := testutil.WAVBytes(t, 8000, 1, 0.25, 440)
	g, err := m.Load(context.Background(), data, "audio/wav", "a.wav")
	require.NoError(t, err)

	assert.True(t, m.Ready())
	assert.Same(t, g, m.Graph())
	require.NotNil(t, m.Asset())
	assert.Equal(t, "a.wav", m.Asset().Name)
	assert.Equal(t, 2048, g.Analyzer().FFTSize())
}

func TestManagerReloadDiscardsPreviousGraph(t *testing.T) {
	decodes := 0
	m := newTestManager(WithDecoder(func(ctx context.Context, data []byte, mimeType, name string) (*asset.Asset, error) {
		decodes++
		return asset.Decode(ctx, data, mimeType, name)
	}))
	data := testutil.WAVBytes(t, 8000, 1, 0.25, 440)

	first, err := m.Load(context.Background(), data, "audio/wav", "first")
	require.NoError(t, err)
	second, err := m.Load(context.Background(), data, "audio/wav", "second")
	require.NoError(t, err)

	assert.Equal(t, 2, decodes)
	assert.NotSame(t, first, second)
	assert.True(t, first.Closed())
	for _, n := range first.Nodes() {
		assert.False(t, n.Connected())
	}
	assert.False(t, second.Closed())
	assert.Equal(t, "second", m.Asset().Name)
}

func TestManagerFailedLoadKeepsCurrentGraph(t *testing.T) {
	m := newTestManager()
	data := testutil.WAVBytes(t, 8000, 1, 0.25, 440)
	g, err := m.Load(context.Background(), data, "audio/wav", "ok")
	require.NoError(t, err)

	_, err = m.Load(context.Background(), data, "video/mp4", "bad")
	assert.ErrorIs(t, err, asset.ErrInvalidFileType)
	_, err = m.Load(context.Background(), []byte("garbage"), "audio/mpeg", "bad")
	assert.ErrorIs(t, err, asset.ErrDecode)

	assert.Same(t, g, m.Graph())
	assert.False(t, g.Closed())
}

func TestManagerFailedBuildKeepsCurrentGraph(t *testing.T) {
	m := newTestManager()
	data := testutil.WAVBytes(t, 8000, 1, 0.25, 440)
	g, err := m.Load(context.Background(), data, "audio/wav", "ok")
	require.NoError(t, err)
	a := m.Asset()

	m.opts.MaxDecibels = m.opts.MinDecibels
	_, err = m.Prepare()
	assert.Error(t, err)
	_, err = m.Load(context.Background(), data, "audio/wav", "next")
	assert.Error(t, err)

	assert.Same(t, g, m.Graph())
	assert.Same(t, a, m.Asset())
	assert.False(t, g.Closed())
}

func TestManagerCommitFollowsQuality(t *testing.T) {
	m := newTestManager()
	data := testutil.WAVBytes(t, 8000, 1, 0.25, 440)
	a, err := m.Decode(context.Background(), data, "audio/wav", "x")
	require.NoError(t, err)

	g, err := m.Prepare()
	require.NoError(t, err)
	assert.Nil(t, m.Graph(), "prepare does not install")

	require.NoError(t, m.SetQuality(QualityLow))
	m.Commit(a, g)
	assert.Same(t, g, m.Graph())
	assert.Equal(t, 1024, g.Analyzer().FFTSize())
}

func TestManagerOutputWithoutGraphIsSilent(t *testing.T) {
	m := newTestManager()
	out := m.Output()
	buf := make([][2]float64, 8)
	buf[3] = [2]float64{1, 1}
	n, ok := out.Stream(buf)
	assert.Equal(t, 8, n)
	assert.True(t, ok)
	assert.Equal(t, [2]float64{}, buf[3])
}

func TestManagerSetQuality(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.SetQuality(QualityLow))
	assert.Equal(t, QualityLow, m.Quality())
	assert.Error(t, m.SetQuality("ultra"))

	data := testutil.WAVBytes(t, 8000, 1, 0.25, 440)
	g, err := m.Load(context.Background(), data, "audio/wav", "x")
	require.NoError(t, err)
	assert.Equal(t, 1024, g.Analyzer().FFTSize())

	require.NoError(t, m.SetQuality(QualityHigh))
	assert.Same(t, g, m.Graph(), "quality change must not rebuild the graph")
	assert.Equal(t, 4096, g.Analyzer().FFTSize())
}

func TestManagerDiscard(t *testing.T) {
	m := newTestManager()
	data := testutil.WAVBytes(t, 8000, 1, 0.25, 440)
	g, err := m.Load(context.Background(), data, "audio/wav", "x")
	require.NoError(t, err)

	m.Discard()
	assert.False(t, m.Ready())
	assert.Nil(t, m.Asset())
	assert.True(t, g.Closed())
}
