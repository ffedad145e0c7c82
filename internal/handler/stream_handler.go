package handler

import (
	"bufio"
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"
)

// WarningHeader carries the fallback warning on streamed responses, where the
// body is plain text.
const WarningHeader = "X-Generation-Warning"

// streamFixed passes a streaming generator's chunks through as chunked
// text/plain. When the stream cannot start the fallback text is written
// instead, still with status 200.
func (h *GeneratorHandler) streamFixed(name string) fiber.Handler {
	return func(c fiber.Ctx) error {
		req, err := decodeGenerateRequest(c.Body())
		if err != nil {
			return respondError(c, errBadRequest)
		}

		// The writer runs after the handler returns, so the stream must not
		// hang off the request context.
		out, err := h.gen.Stream(context.Background(), name, req)
		if err != nil {
			return respondError(c, err)
		}

		c.Set("Content-Type", "text/plain; charset=utf-8")
		c.Set("Cache-Control", "no-cache")
		c.Set("X-Accel-Buffering", "no")

		if out.Chunks == nil {
			c.Set(WarningHeader, out.Warning)
			return c.SendString(out.Fallback)
		}

		return c.SendStreamWriter(func(w *bufio.Writer) {
			defer out.Stop()
			for chunk := range out.Chunks {
				if _, err := w.WriteString(chunk); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					slog.Info("stream client disconnected", "generator", name)
					return
				}
			}
		})
	}
}
