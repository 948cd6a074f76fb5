package handlers

import (
	"net/http"

	"github.com/anonto42/onlyme/internal/models"
	"github.com/anonto42/onlyme/internal/wallet"
	"github.com/labstack/echo/v4"
)

// WalletHandler handles balances, top ups, conversion and earnings
type WalletHandler struct{}

func NewWalletHandler() *WalletHandler {
	return &WalletHandler{}
}

// RegisterWalletRoutes registers wallet routes
func (h *WalletHandler) RegisterWalletRoutes(g *echo.Group) {
	g.GET("/wallet", h.GetBalance)
	g.GET("/wallet/packages", h.Packages)
	g.POST("/wallet/topup", h.TopUp)
	g.POST("/wallet/convert", h.Convert)
	g.GET("/wallet/earnings", h.Earnings)
}

// GetBalance refreshes and returns the caller's balance
func (h *WalletHandler) GetBalance(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	balance, err := scope.Wallet.Refresh(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, balance)
}

type packageResponse struct {
	Points int64   `json:"points"`
	Worth  float64 `json:"worth"`
}

// Packages lists the top-up packages with their conversion value
func (h *WalletHandler) Packages(c echo.Context) error {
	pkgs := wallet.Packages()
	out := make([]packageResponse, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, packageResponse{Points: p, Worth: wallet.Quote(p)})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WalletHandler) TopUp(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req models.TopUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	balance, err := scope.Wallet.TopUp(c.Request().Context(), req.Amount)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, balance)
}

// Convert turns points into money at 1000:900
func (h *WalletHandler) Convert(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req models.ConvertRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	money, err := scope.Wallet.ConvertPointsToMoney(c.Request().Context(), req.Points)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"money_amount": money,
		"balance":      scope.Wallet.Balance(),
	})
}

func (h *WalletHandler) Earnings(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	earnings, err := scope.Wallet.Earnings(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, earnings)
}
