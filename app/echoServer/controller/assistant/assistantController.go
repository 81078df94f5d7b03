package assistant

import (
	"log/slog"
	"net/http"
	"strings"

	"bookex/app/echoServer/httperr"
	"bookex/app/echoServer/jwtx"
	"bookex/model"
	assistantsvc "bookex/service/assistant"
	booksvc "bookex/service/book"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type ChatReq struct {
	Message string `json:"message" validate:"required,max=1000"`
}

type Controller struct {
	Svc     *assistantsvc.Service
	Catalog booksvc.Service
	V       *validator.Validate
	Log     *slog.Logger
}

// POST /v1/assistant/chat
// @Summary  Ask the bookstore assistant
// @Description Answers from the books the caller can see. Falls back to top rated books when the assistant is unavailable.
// @Tags     assistant
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    payload body ChatReq true "Message"
// @Success  200 {object} assistant.ChatReply
// @Failure  400,401,429 {object} map[string]any
// @Router   /v1/assistant/chat [post]
func (h *Controller) Chat(c echo.Context) error {
	var req ChatReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := h.V.Struct(req); err != nil {
		return httperr.ValidationError(c, err)
	}
	ctx := c.Request().Context()
	visible, err := h.Catalog.Search(ctx, jwtx.Viewer(c), model.BookFilter{}, false)
	if err != nil {
		return httperr.Write(c, h.Log, "chat catalog", err)
	}
	return c.JSON(http.StatusOK, h.Svc.Chat(ctx, req.Message, visible))
}
