package controllers

import (
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/foodle-app/foodle/app/services"
	"github.com/foodle-app/foodle/pkg/ctx"
)

const pickupQRSize = 256

type OrderController struct {
	service *services.OrderService
}

func NewOrderController(service *services.OrderService) *OrderController {
	return &OrderController{service: service}
}

// Index lists the student's orders, newest first.
func (h *OrderController) Index(c *ctx.Context) {
	orders, err := h.service.ForStudent(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(orders)
}

func (h *OrderController) Show(c *ctx.Context) {
	order, err := h.service.Get(c.Context(), c.UserID(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}

// PickupQR renders the pickup code as a QR image for the counter scanner.
func (h *OrderController) PickupQR(c *ctx.Context) {
	order, err := h.service.Get(c.Context(), c.UserID(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	png, err := qrcode.Encode(order.PickupCode, qrcode.Medium, pickupQRSize)
	if err != nil {
		fail(c, err)
		return
	}
	c.SetHeader("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}
