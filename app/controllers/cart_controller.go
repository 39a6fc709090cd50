package controllers

import (
	"github.com/foodle-app/foodle/app/services"
	"github.com/foodle-app/foodle/pkg/ctx"
)

type CartController struct {
	service *services.CartService
}

func NewCartController(service *services.CartService) *CartController {
	return &CartController{service: service}
}

type addItemInput struct {
	MenuItemID string `json:"menu_item_id" validate:"required"`
}

type quantityInput struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=99"`
}

func (h *CartController) Show(c *ctx.Context) {
	cart, err := h.service.Open(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(services.ViewOf(cart))
}

func (h *CartController) Add(c *ctx.Context) {
	var in addItemInput
	if !c.BindJSON(&in) {
		return
	}
	cart, err := h.service.AddItem(c.Context(), c.UserID(), in.MenuItemID)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(services.ViewOf(cart))
}

// Update sets a line's quantity; 0 removes it.
func (h *CartController) Update(c *ctx.Context) {
	var in quantityInput
	if !c.BindJSON(&in) {
		return
	}
	cart, err := h.service.SetQuantity(c.Context(), c.UserID(), c.Param("id"), in.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(services.ViewOf(cart))
}

func (h *CartController) Remove(c *ctx.Context) {
	cart, err := h.service.RemoveItem(c.Context(), c.UserID(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(services.ViewOf(cart))
}

func (h *CartController) Clear(c *ctx.Context) {
	if err := h.service.Clear(c.Context(), c.UserID()); err != nil {
		fail(c, err)
		return
	}
	c.Success(services.CartView{})
}
