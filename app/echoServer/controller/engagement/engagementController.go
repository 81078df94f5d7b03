package engagement

import (
	"log/slog"
	"net/http"

	"bookex/app/echoServer/httperr"
	"bookex/app/echoServer/jwtx"
	engagementsvc "bookex/service/engagement"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc engagementsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/books/:id/rating
func (h *Controller) Rate(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	var req RateReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	if err := h.V.Struct(req); err != nil {
		return httperr.ValidationError(c, err)
	}
	if err := h.Svc.Rate(c.Request().Context(), jwtx.Viewer(c), id, req.Rating); err != nil {
		return httperr.Write(c, h.Log, "rate", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "rated", "rating": req.Rating})
}

// GET /v1/books/:id/comments
func (h *Controller) Comments(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	rows, err := h.Svc.Comments(c.Request().Context(), jwtx.Viewer(c), id)
	if err != nil {
		return httperr.Write(c, h.Log, "comments", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// POST /v1/books/:id/comments
func (h *Controller) AddComment(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	var req CommentReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	if err := h.V.Struct(req); err != nil {
		return httperr.ValidationError(c, err)
	}
	cm, err := h.Svc.AddComment(c.Request().Context(), jwtx.Viewer(c), id, req.Content)
	if err != nil {
		return httperr.Write(c, h.Log, "add comment", err)
	}
	return c.JSON(http.StatusCreated, cm)
}

// PUT /v1/comments/:id
func (h *Controller) EditComment(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	var req CommentReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	if err := h.V.Struct(req); err != nil {
		return httperr.ValidationError(c, err)
	}
	cm, err := h.Svc.EditComment(c.Request().Context(), jwtx.Viewer(c), id, req.Content)
	if err != nil {
		return httperr.Write(c, h.Log, "edit comment", err)
	}
	return c.JSON(http.StatusOK, cm)
}

// DELETE /v1/comments/:id
func (h *Controller) DeleteComment(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	if err := h.Svc.DeleteComment(c.Request().Context(), jwtx.Viewer(c), id); err != nil {
		return httperr.Write(c, h.Log, "delete comment", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /v1/books/:id/favorite
func (h *Controller) ToggleFavorite(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	on, err := h.Svc.ToggleFavorite(c.Request().Context(), jwtx.Viewer(c), id)
	if err != nil {
		return httperr.Write(c, h.Log, "favorite", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"book_id": id, "favorite": on})
}
