package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luhtfiimanal/go-ssr"
)

// EventLister is the read side of a journal, such as *journal.Journal.
type EventLister interface {
	List(limit int) ([]ssr.Event, error)
}

type Handler struct {
	dev     *ssr.LogicalDevice
	events  EventLister
	metrics *prometheus.Registry
}

// NewHandler serves dev. events may be nil, in which case /events
// answers 404.
func NewHandler(dev *ssr.LogicalDevice, events EventLister) *Handler {
	return &Handler{
		dev:     dev,
		events:  events,
		metrics: newMetrics(dev),
	}
}

func (h *Handler) Info(c *gin.Context) {
	g := h.dev.Geometry()
	names := h.dev.MirrorNames()
	c.JSON(http.StatusOK, gin.H{
		"id":          h.dev.ID(),
		"geometry":    g,
		"mirror_size": g.MirrorSize(),
		"mirrors":     gin.H{"primary": names[ssr.Primary], "secondary": names[ssr.Secondary]},
	})
}

func (h *Handler) Read(c *gin.Context) {
	sector, ok := h.sectorParam(c)
	if !ok {
		return
	}
	count := int64(1)
	if q := c.Query("count"); q != "" {
		n, err := strconv.ParseInt(q, 10, 64)
		if err != nil || n <= 0 || n > h.dev.Capacity() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid count %q", q)})
			return
		}
		count = n
	}

	buf := make([]byte, count*int64(h.dev.SectorSize()))
	if err := h.dev.ReadSectors(sector, buf); err != nil {
		log.Printf("Failed to read sectors [%d, %d). Why: %v", sector, sector+count, err)
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", buf)
}

func (h *Handler) Write(c *gin.Context) {
	sector, ok := h.sectorParam(c)
	if !ok {
		return
	}
	limit := h.dev.Capacity() * int64(h.dev.SectorSize())
	buf, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
	if err != nil {
		log.Printf("Failed to read request body. Why: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	if int64(len(buf)) > limit {
		writeError(c, ssr.ErrOutOfRange)
		return
	}
	if err := h.dev.WriteSectors(sector, buf); err != nil {
		log.Printf("Failed to write %d bytes at sector %d. Why: %v", len(buf), sector, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sector": sector, "sectors": len(buf) / h.dev.SectorSize()})
}

func (h *Handler) Scrub(c *gin.Context) {
	rep, err := h.dev.Scrub(c.Request.Context(), nil)
	if err != nil {
		log.Printf("Scrub stopped after %d sectors. Why: %v", rep.Scanned, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h *Handler) Flush(c *gin.Context) {
	if err := h.dev.Flush(); err != nil {
		log.Printf("Failed to flush mirrors. Why: %v", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "flushed"})
}

func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.dev.GetStats())
}

func (h *Handler) Events(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no journal configured"})
		return
	}
	limit := 100
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit %q", q)})
			return
		}
		limit = n
	}
	evs, err := h.events.List(limit)
	if err != nil {
		log.Printf("Failed to list journal events. Why: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}
	if evs == nil {
		evs = []ssr.Event{}
	}
	c.JSON(http.StatusOK, evs)
}

func (h *Handler) sectorParam(c *gin.Context) (int64, bool) {
	sector, err := strconv.ParseInt(c.Param("sector"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid sector %q", c.Param("sector"))})
		return 0, false
	}
	return sector, true
}

// writeError maps device errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var mwf *ssr.MirrorWriteFailedError
	switch {
	case errors.Is(err, ssr.ErrUnaligned):
		status = http.StatusBadRequest
	case errors.Is(err, ssr.ErrOutOfRange):
		status = http.StatusRequestedRangeNotSatisfiable
	case errors.Is(err, ssr.ErrQueueFull), errors.Is(err, ssr.ErrClosed):
		status = http.StatusServiceUnavailable
	case ssr.IsUnrecoverable(err):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &mwf):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
