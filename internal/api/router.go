// SPDX-License-Identifier: MIT

// Package api exposes the player over HTTP: JSON control routes under
// /api/v1 and the render-state websocket.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"spectra/internal/log"
	"spectra/internal/player"

	"github.com/gin-gonic/gin"
)

var logger = log.Named("api")

// MaxUploadBytes caps POST /asset bodies.
const MaxUploadBytes = 256 << 20

// Handlers serves the control routes for one player.
type Handlers struct {
	player *player.Player
}

// NewRouter returns the gin engine with every route mounted.
func NewRouter(p *player.Player, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &Handlers{player: p}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.MaxMultipartMemory = 32 << 20

	r.GET("/ws", gin.WrapH(p.RenderHandler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/state", h.GetState)
		v1.POST("/asset", h.LoadAsset)

		tr := v1.Group("/transport")
		{
			tr.POST("/play", h.Play)
			tr.POST("/pause", h.Pause)
			tr.POST("/toggle", h.Toggle)
			tr.PUT("/position", h.Seek)
			tr.PUT("/rate", h.SetRate)
			tr.PUT("/reverse", h.SetReverse)
			tr.PUT("/loop", h.SetLoop)
			tr.PUT("/shuffle", h.SetShuffle)
		}

		v1.PUT("/volume", h.SetVolume)
		v1.PUT("/mute", h.SetMute)

		fx := v1.Group("/effects")
		{
			fx.GET("", h.GetEffects)
			fx.PUT("/bass", h.SetBass)
			fx.PUT("/treble", h.SetTreble)
			fx.PUT("/bands/:band", h.SetBand)
			fx.DELETE("", h.ResetEffects)
		}

		v1.GET("/visualization", h.GetVisualization)
		v1.PUT("/visualization", h.SetVisualization)
		v1.GET("/levels", h.GetLevels)
	}
	return r
}

// requestLogger logs each request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Server runs the router on a TCP address.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr. Serve must be called to accept connections.
func Listen(addr string, handler http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		srv: &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks until Shutdown.
func (s *Server) Serve() error {
	logger.Infof("control API listening on http://%s/api/v1", s.Addr())
	if err := s.srv.Serve(s.ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests.
// Hijacked websocket connections are closed by the transport.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
