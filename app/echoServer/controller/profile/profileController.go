package profile

import (
	"log/slog"
	"net/http"

	"bookex/app/echoServer/httperr"
	"bookex/app/echoServer/jwtx"
	"bookex/model"
	"bookex/service/subscription"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc subscription.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /v1/profile
// @Summary  Current profile with tier, role and balance
// @Tags     profile
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} model.Profile
// @Failure  401 {object} map[string]any
// @Router   /v1/profile [get]
func (h *Controller) Get(c echo.Context) error {
	// the viewer was resolved for this request, deduction already settled
	return c.JSON(http.StatusOK, jwtx.Viewer(c).Profile)
}

// PUT /v1/profile/role
func (h *Controller) ChangeRole(c echo.Context) error {
	var req ChangeRoleReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	if err := h.V.Struct(req); err != nil {
		return httperr.ValidationError(c, err)
	}
	role, _ := model.ParseRole(req.Role)
	p, err := h.Svc.ChangeRole(c.Request().Context(), jwtx.Viewer(c).UserID, role)
	if err != nil {
		return httperr.Write(c, h.Log, "change role", err)
	}
	return c.JSON(http.StatusOK, p)
}

// PUT /v1/profile/tier
// @Summary  Change subscription tier
// @Description Charges the full monthly fee of the target tier. Free cancels.
// @Tags     profile
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    payload body ChangeTierReq true "Target tier"
// @Success  200 {object} subscription.TierChange
// @Failure  400,401,402,403,409 {object} map[string]any
// @Router   /v1/profile/tier [put]
func (h *Controller) ChangeTier(c echo.Context) error {
	var req ChangeTierReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	if err := h.V.Struct(req); err != nil {
		return httperr.ValidationError(c, err)
	}
	tier, ok := model.ParseTier(req.Tier)
	if !ok {
		return httperr.BadRequest(c, "unknown tier")
	}
	out, err := h.Svc.ChangeTier(c.Request().Context(), jwtx.Viewer(c).UserID, tier)
	if err != nil {
		return httperr.Write(c, h.Log, "change tier", err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /v1/profile/deposit
func (h *Controller) Deposit(c echo.Context) error {
	var req DepositReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest(c, "invalid json")
	}
	p, err := h.Svc.Deposit(c.Request().Context(), jwtx.Viewer(c).UserID, req.Amount)
	if err != nil {
		return httperr.Write(c, h.Log, "deposit", err)
	}
	return c.JSON(http.StatusOK, p)
}

// GET /v1/profile/ledger
func (h *Controller) Ledger(c echo.Context) error {
	rows, err := h.Svc.Ledger(c.Request().Context(), jwtx.Viewer(c).UserID)
	if err != nil {
		return httperr.Write(c, h.Log, "ledger", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
