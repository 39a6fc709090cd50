package controllers

import (
	"github.com/foodle-app/foodle/app/services"
	"github.com/foodle-app/foodle/pkg/ctx"
)

type StallController struct {
	service *services.StallService
}

func NewStallController(service *services.StallService) *StallController {
	return &StallController{service: service}
}

func (h *StallController) Index(c *ctx.Context) {
	stalls, err := h.service.List(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(stalls)
}

// Show returns the stall with its available menu grouped by category.
func (h *StallController) Show(c *ctx.Context) {
	page, err := h.service.Page(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(page)
}
