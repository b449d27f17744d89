package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core/user"
)

type authApi struct {
	svc        user.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func registerAuthAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc user.ServiceInterface,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := authApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/telegram", api.login)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data TelegramLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TelegramLoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, claims, err := authenticate(ctx.Request().Context(), data.InitData, api.svc)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: &usr})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	TelegramLoginRequest struct {
		InitData string `json:"init_data" validate:"required"`
	}

	LoginResponse struct {
		Token string     `json:"token"`
		User  *user.User `json:"user,omitempty"`
	}
)

func (tr *TelegramLoginRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(tr)
}
