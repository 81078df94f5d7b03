package cart

import (
	"log/slog"
	"net/http"

	"bookex/app/echoServer/httperr"
	"bookex/app/echoServer/jwtx"
	cartsvc "bookex/service/cart"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc cartsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /v1/cart
func (h *Controller) List(c echo.Context) error {
	out, err := h.Svc.List(c.Request().Context(), jwtx.Viewer(c).UserID)
	if err != nil {
		return httperr.Write(c, h.Log, "cart list", err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /v1/cart/items
func (h *Controller) Add(c echo.Context) error {
	var req AddItemReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	if err := h.V.Struct(req); err != nil {
		return httperr.ValidationError(c, err)
	}
	line, err := h.Svc.Add(c.Request().Context(), jwtx.Viewer(c).UserID, req.BookID)
	if err != nil {
		return httperr.Write(c, h.Log, "cart add", err)
	}
	return c.JSON(http.StatusCreated, line)
}

// PUT /v1/cart/items/:id
func (h *Controller) UpdateQuantity(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	var req UpdateItemReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	if err := h.V.Struct(req); err != nil {
		return httperr.ValidationError(c, err)
	}
	if err := h.Svc.UpdateQuantity(c.Request().Context(), jwtx.Viewer(c).UserID, id, req.Quantity); err != nil {
		return httperr.Write(c, h.Log, "cart update", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "updated"})
}

// DELETE /v1/cart/items/:id
func (h *Controller) Cancel(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	if err := h.Svc.Cancel(c.Request().Context(), jwtx.Viewer(c).UserID, id); err != nil {
		return httperr.Write(c, h.Log, "cart cancel", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /v1/cart/checkout
func (h *Controller) Checkout(c echo.Context) error {
	out, err := h.Svc.Checkout(c.Request().Context(), jwtx.Viewer(c).UserID)
	if err != nil {
		return httperr.Write(c, h.Log, "checkout", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/books/:id/returnable
func (h *Controller) Returnable(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	n, err := h.Svc.AvailableToReturn(c.Request().Context(), jwtx.Viewer(c).UserID, id)
	if err != nil {
		return httperr.Write(c, h.Log, "returnable", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"book_id": id, "available": n})
}

// POST /v1/returns
func (h *Controller) Return(c echo.Context) error {
	var req ReturnReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	if err := h.V.Struct(req); err != nil {
		return httperr.ValidationError(c, err)
	}
	rec, err := h.Svc.Return(c.Request().Context(), jwtx.Viewer(c).UserID, req.BookID, req.Quantity)
	if err != nil {
		return httperr.Write(c, h.Log, "return", err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// GET /v1/returns
func (h *Controller) Returns(c echo.Context) error {
	rows, err := h.Svc.Returns(c.Request().Context(), jwtx.Viewer(c).UserID)
	if err != nil {
		return httperr.Write(c, h.Log, "returns", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
