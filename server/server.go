// Package server exposes a LogicalDevice over HTTP with gin, plus
// Prometheus metrics for its integrity counters.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServer struct {
	addr    string
	engine  *gin.Engine
	srv     *http.Server
	handler *Handler
}

func NewHTTPServer(addr string, h *Handler) *HTTPServer {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	s := &HTTPServer{
		addr:    addr,
		engine:  engine,
		handler: h,
	}
	s.registerRoutes()
	return s
}

func (s *HTTPServer) registerRoutes() {
	v1 := s.engine.Group("/v1")

	device := v1.Group("/device")
	device.GET("", s.handler.Info)
	device.GET("/sectors/:sector", s.handler.Read)
	device.PUT("/sectors/:sector", s.handler.Write)
	device.POST("/scrub", s.handler.Scrub)
	device.POST("/flush", s.handler.Flush)
	device.GET("/stats", s.handler.Stats)
	device.GET("/events", s.handler.Events)

	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.handler.metrics, promhttp.HandlerOpts{})))
}

// Handler returns the routed engine, for embedding or tests.
func (s *HTTPServer) Handler() http.Handler { return s.engine }

func (s *HTTPServer) Run() error {
	s.srv = &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}
	return s.srv.ListenAndServe()
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
