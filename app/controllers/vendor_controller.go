package controllers

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/foodle-app/foodle/app/services"
	"github.com/foodle-app/foodle/pkg/ctx"
	"github.com/foodle-app/foodle/pkg/lifecycle"
)

const defaultHistoryLimit = 50

type VendorController struct {
	service *services.VendorService
}

func NewVendorController(service *services.VendorService) *VendorController {
	return &VendorController{service: service}
}

type stallInput struct {
	IsOpen        *bool   `json:"is_open"`
	IsSnoozed     *bool   `json:"is_snoozed"`
	SnoozeMessage *string `json:"snooze_message" validate:"max=255"`
	PrepTimeMins  *int    `json:"prep_time_mins" validate:"gte=0,lte=240"`
	OrderCap      *int    `json:"order_cap"      validate:"gte=0"`

	RazorpayAccountID *string `json:"razorpay_account_id" validate:"max=64"`
}

type menuItemInput struct {
	IsAvailable *bool            `json:"is_available"`
	Price       *decimal.Decimal `json:"price" validate:"gte=0"`
}

type advanceInput struct {
	PickupCode string `json:"pickup_code"`
}

func (h *VendorController) Stall(c *ctx.Context) {
	stall, err := h.service.Stall(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(stall)
}

func (h *VendorController) UpdateStall(c *ctx.Context) {
	var in stallInput
	if !c.BindJSON(&in) {
		return
	}
	stall, err := h.service.UpdateStall(c.Context(), c.UserID(), services.StallUpdate{
		IsOpen:        in.IsOpen,
		IsSnoozed:     in.IsSnoozed,
		SnoozeMessage: in.SnoozeMessage,
		PrepTimeMins:  in.PrepTimeMins,
		OrderCap:      in.OrderCap,

		RazorpayAccountID: in.RazorpayAccountID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(stall)
}

func (h *VendorController) Menu(c *ctx.Context) {
	items, err := h.service.Menu(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(items)
}

func (h *VendorController) UpdateMenuItem(c *ctx.Context) {
	var in menuItemInput
	if !c.BindJSON(&in) {
		return
	}
	item, err := h.service.UpdateMenuItem(c.Context(), c.UserID(), c.Param("id"), services.MenuItemUpdate{
		IsAvailable: in.IsAvailable,
		Price:       in.Price,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(item)
}

// Orders is the active queue, oldest first.
func (h *VendorController) Orders(c *ctx.Context) {
	orders, err := h.service.ActiveOrders(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(orders)
}

func (h *VendorController) History(c *ctx.Context) {
	orders, err := h.service.History(c.Context(), c.UserID(), c.QueryInt("limit", defaultHistoryLimit))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(orders)
}

// Advance applies the action in the URL. complete reads the pickup code from
// the body.
func (h *VendorController) Advance(c *ctx.Context) {
	action, err := lifecycle.ParseAction(c.Param("action"))
	if err != nil {
		c.NotFound(fmt.Sprintf("Unknown action %q", c.Param("action")))
		return
	}
	var in advanceInput
	if action == lifecycle.Complete && !c.BindJSON(&in) {
		return
	}
	order, err := h.service.Advance(c.Context(), c.UserID(), c.Param("id"), action, in.PickupCode)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}
