package handlers

import (
	"bufio"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/kamaundungu/soko_events/database"
	"github.com/kamaundungu/soko_events/models"
	"github.com/kamaundungu/soko_events/stream"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"
)

const (
	heartbeatInterval = 15 * time.Second
	// A subscription that never sees a terminal event gives up after
	// this long and tells the client to fall back to polling.
	subscriptionTimeout = 5 * time.Minute
)

// StreamPaymentStatus holds a long-lived connection per invoice
// reference and pushes newline-delimited JSON events as the payment
// settles. If the payment is already terminal, the terminal event is
// sent immediately and the connection closed.
func StreamPaymentStatus(c *fiber.Ctx) error {
	invoiceRef := c.Params("invoiceRef")

	var payment models.Payment
	if err := database.DB.Where("invoice_ref = ?", invoiceRef).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// Subscribe before the terminal re-check so a webhook landing in
	// between cannot slip past unseen.
	sub := stream.Hub.Subscribe(invoiceRef)

	if err := database.DB.Where("invoice_ref = ?", invoiceRef).First(&payment).Error; err == nil && payment.IsTerminal() {
		stream.Hub.Unsubscribe(sub)
		payload, _ := json.Marshal(stream.TerminalEvent(&payment))
		return c.SendString(string(payload) + "\n")
	}

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer stream.Hub.Unsubscribe(sub)

		writeEvent := func(ev stream.Event) bool {
			payload, err := json.Marshal(ev)
			if err != nil {
				return false
			}
			if _, err := w.Write(append(payload, '\n')); err != nil {
				return false
			}
			return w.Flush() == nil
		}

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()
		deadline := time.NewTimer(subscriptionTimeout)
		defer deadline.Stop()

		for {
			select {
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if !writeEvent(ev) {
					return
				}
				if ev.IsTerminal() {
					return
				}
			case <-heartbeat.C:
				if !writeEvent(stream.HeartbeatEvent()) {
					return
				}
			case <-deadline.C:
				writeEvent(stream.TimeoutEvent())
				return
			}
		}
	}))
	return nil
}

// WebSocketUpgrade gates the socket route to real upgrade requests.
func WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// PaymentStatusSocket serves the same event contract over a websocket
// for clients behind proxies that buffer streaming responses.
func PaymentStatusSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		invoiceRef := conn.Params("invoiceRef")
		defer conn.Close()

		var payment models.Payment
		if err := database.DB.Where("invoice_ref = ?", invoiceRef).First(&payment).Error; err != nil {
			conn.WriteJSON(fiber.Map{"type": "error", "error": "Payment not found"})
			return
		}

		sub := stream.Hub.Subscribe(invoiceRef)
		defer stream.Hub.Unsubscribe(sub)

		if err := database.DB.Where("invoice_ref = ?", invoiceRef).First(&payment).Error; err == nil && payment.IsTerminal() {
			conn.WriteJSON(stream.TerminalEvent(&payment))
			return
		}

		// Read pump: its only job is to notice the peer going away.
		disconnected := make(chan struct{})
		go func() {
			defer close(disconnected)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()
		deadline := time.NewTimer(subscriptionTimeout)
		defer deadline.Stop()

		for {
			select {
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
				if ev.IsTerminal() {
					return
				}
			case <-heartbeat.C:
				if err := conn.WriteJSON(stream.HeartbeatEvent()); err != nil {
					return
				}
			case <-deadline.C:
				conn.WriteJSON(stream.TimeoutEvent())
				return
			case <-disconnected:
				return
			}
		}
	})
}
