package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/liveview"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const streamPingInterval = 15 * time.Second

// StreamHandler serves live views over Server-Sent Events.
type StreamHandler struct {
	hub            *store.Hub
	contentService *services.ContentService
}

func NewStreamHandler(hub *store.Hub, contentService *services.ContentService) *StreamHandler {
	return &StreamHandler{hub: hub, contentService: contentService}
}

// Progress streams the moderation progress of one of the caller's records
// until it leaves pending.
func (h *StreamHandler) Progress(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	id := c.Params("id")
	if _, err := h.contentService.GetOwned(c.UserContext(), sess, id); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w, err := liveview.Watch(ctx, h.hub, id)
	if err != nil {
		cancel()
		return respondError(c, err)
	}

	setStreamHeaders(c)
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(bw *bufio.Writer) {
		defer cancel()
		defer w.Cancel()

		ticker := time.NewTicker(streamPingInterval)
		defer ticker.Stop()
		for {
			select {
			case p, ok := <-w.Updates():
				if !ok {
					return
				}
				if err := writeEvent(bw, "progress", p); err != nil {
					return
				}
				if p.Done {
					return
				}
			case <-ticker.C:
				if err := writePing(bw); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

// Mine streams the caller's non-archived records.
func (h *StreamHandler) Mine(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	return h.streamQuery(c, services.MineQuery(sess.UserID))
}

// Approved streams the public feed, optionally filtered by ?tag=.
func (h *StreamHandler) Approved(c *fiber.Ctx) error {
	return h.streamQuery(c, services.ApprovedQuery(c.Query("tag")))
}

func (h *StreamHandler) streamQuery(c *fiber.Ctx, q store.Query) error {
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := h.hub.Subscribe(ctx, store.Filter{Query: &q})
	if err != nil {
		cancel()
		return respondError(c, err)
	}

	setStreamHeaders(c)
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(bw *bufio.Writer) {
		defer cancel()
		defer sub.Cancel()

		ticker := time.NewTicker(streamPingInterval)
		defer ticker.Stop()
		for {
			select {
			case snap, ok := <-sub.C():
				if !ok {
					return
				}
				payload := dto.ContentListResponse{Data: snap.Records, Count: len(snap.Records)}
				if err := writeEvent(bw, "snapshot", payload); err != nil {
					return
				}
			case <-ticker.C:
				if err := writePing(bw); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func setStreamHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")
}

func writeEvent(bw *bufio.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("stream event encode failed", "event", event, "error", err)
		return err
	}
	if _, err := fmt.Fprintf(bw, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return bw.Flush()
}

func writePing(bw *bufio.Writer) error {
	if _, err := bw.WriteString(": ping\n\n"); err != nil {
		return err
	}
	return bw.Flush()
}
