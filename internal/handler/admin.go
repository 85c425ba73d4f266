package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-rsvp-ledger/internal/ledger"
	"github.com/iliyamo/event-rsvp-ledger/internal/utils"
)

// PageReader returns the data rows of one page.
type PageReader interface {
	PageRows(ctx context.Context, page ledger.PageIndex) ([]ledger.Row, error)
}

// AdminConfig holds the single admin credential and token settings.
type AdminConfig struct {
	PasswordHash string
	JWTSecret    string
	AccessTTLMin int
}

// AdminHandler serves login and the raw page view for the organisers.
type AdminHandler struct {
	cfg   AdminConfig
	pages PageReader
	log   zerolog.Logger
}

func NewAdminHandler(cfg AdminConfig, pages PageReader, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{cfg: cfg, pages: pages, log: log.With().Str("component", "admin-handler").Logger()}
}

type loginReq struct {
	Password string `json:"password"`
}

// Login handles POST /api/admin/login.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginReq
	// a missing password is a client error, not a failed login
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
	}
	if !utils.VerifyPassword(h.cfg.PasswordHash, req.Password) {
		// log the source so repeated guessing shows up
		h.log.Warn().Str("remote_ip", c.RealIP()).Msg("admin login rejected")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	// there is one admin, so the subject is fixed
	tok, err := utils.NewAccessToken(h.cfg.JWTSecret, "admin", utils.RoleAdmin, h.cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, tok) // {access_token, expires_at}
}

// PageRows handles GET /api/admin/pages/:n/rows.
func (h *AdminHandler) PageRows(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("n")) // 1-based, as in the sheet name
	page := ledger.PageIndex(n)
	if err != nil || !page.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid page number"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rows, err := h.pages.PageRows(ctx, page)
	switch {
	case errors.Is(err, ledger.ErrPageNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "page not found"})
	case err != nil:
		h.log.Error().Err(err).Stringer("page", page).Msg("read page rows")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger unavailable"})
	}
	if rows == nil {
		// a freshly created page has only its header; report [] rather than null
		rows = []ledger.Row{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"sheet":  int(page),
		"name":   page.Name(),
		"header": ledger.Header,
		"rows":   rows,
	})
}
