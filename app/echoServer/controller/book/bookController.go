package book

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"bookex/app/echoServer/httperr"
	"bookex/app/echoServer/jwtx"
	"bookex/model"
	booksvc "bookex/service/book"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type Controller struct {
	Svc booksvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func parseFilter(c echo.Context) (model.BookFilter, bool, error) {
	f := model.BookFilter{Query: c.QueryParam("q"), Tier: model.Tier(c.QueryParam("tier"))}
	if s := c.QueryParam("min_rating"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return f, false, err
		}
		f.MinRating = &v
	}
	for key, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		if s := c.QueryParam(key); s != "" {
			v, err := decimal.NewFromString(s)
			if err != nil {
				return f, false, err
			}
			*dst = &v
		}
	}
	if s := c.QueryParam("exclusive"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return f, false, err
		}
		f.Exclusive = &v
	}
	ai := false
	if s := c.QueryParam("ai"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return f, false, err
		}
		ai = v
	}
	return f, ai, nil
}

// Search books
// @Summary      Search books
// @Description  Lists books visible to the caller. Unrated books have a null avg_rating.
// @Tags         books
// @Produce      json
// @Param        q           query  string  false  "name contains"
// @Param        min_rating  query  number  false  "minimum average rating (1-5)"
// @Param        min_price   query  string  false  "minimum price"
// @Param        max_price   query  string  false  "maximum price"
// @Param        exclusive   query  bool    false  "only exclusive / only regular"
// @Param        tier        query  string  false  "required tier of exclusive books"
// @Param        ai          query  bool    false  "let the assistant order the results"
// @Success      200  {object}  map[string]any
// @Failure      400  {object}  map[string]any
// @Router       /v1/books [get]
func (h *Controller) Search(c echo.Context) error {
	f, ai, err := parseFilter(c)
	if err != nil {
		return httperr.BadRequest(c, "invalid query parameter")
	}
	rows, err := h.Svc.Search(c.Request().Context(), jwtx.Viewer(c), f, ai)
	if err != nil {
		return httperr.Write(c, h.Log, "book search", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/books/:id
func (h *Controller) Detail(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	row, err := h.Svc.Detail(c.Request().Context(), jwtx.Viewer(c), id)
	if err != nil {
		return httperr.Write(c, h.Log, "book detail", err)
	}
	return c.JSON(http.StatusOK, row)
}

// POST /v1/books
func (h *Controller) Create(c echo.Context) error {
	var req BookReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := h.V.Struct(req); err != nil {
		return httperr.ValidationError(c, err)
	}
	row, err := h.Svc.Create(c.Request().Context(), jwtx.Viewer(c), req.input())
	if err != nil {
		return httperr.Write(c, h.Log, "book create", err)
	}
	return c.JSON(http.StatusCreated, row)
}

// PUT /v1/books/:id
func (h *Controller) Update(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	var req BookReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := h.V.Struct(req); err != nil {
		return httperr.ValidationError(c, err)
	}
	row, err := h.Svc.Update(c.Request().Context(), jwtx.Viewer(c), id, req.input())
	if err != nil {
		return httperr.Write(c, h.Log, "book update", err)
	}
	return c.JSON(http.StatusOK, row)
}

// DELETE /v1/books/:id
func (h *Controller) Delete(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	if err := h.Svc.Delete(c.Request().Context(), jwtx.Viewer(c), id); err != nil {
		return httperr.Write(c, h.Log, "book delete", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GET /v1/books/mine
func (h *Controller) Mine(c echo.Context) error {
	out, err := h.Svc.MyBooks(c.Request().Context(), jwtx.Viewer(c))
	if err != nil {
		return httperr.Write(c, h.Log, "my books", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/favorites
func (h *Controller) Favorites(c echo.Context) error {
	rows, err := h.Svc.Favorites(c.Request().Context(), jwtx.Viewer(c))
	if err != nil {
		return httperr.Write(c, h.Log, "favorites", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/exclusive
func (h *Controller) Exclusive(c echo.Context) error {
	rows, err := h.Svc.ListExclusive(c.Request().Context(), jwtx.Viewer(c))
	if err != nil {
		return httperr.Write(c, h.Log, "exclusive list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/exclusive/:id/stats
func (h *Controller) Stats(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	st, err := h.Svc.Stats(c.Request().Context(), jwtx.Viewer(c), id)
	if err != nil {
		return httperr.Write(c, h.Log, "exclusive stats", err)
	}
	return c.JSON(http.StatusOK, st)
}

// PUT /v1/exclusive/:id/featured
func (h *Controller) SetFeatured(c echo.Context) error {
	id, ok := httperr.ParamID(c, "id")
	if !ok {
		return httperr.BadRequest(c, "invalid id")
	}
	var req FeaturedReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	if err := h.V.Struct(req); err != nil {
		return httperr.ValidationError(c, err)
	}
	if err := h.Svc.SetFeatured(c.Request().Context(), jwtx.Viewer(c), id, *req.Featured); err != nil {
		return httperr.Write(c, h.Log, "set featured", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "updated", "is_featured": *req.Featured})
}
