package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core/school"
)

type reminderApi struct {
	svc        school.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func registerReminderAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc school.ServiceInterface,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := reminderApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	rg := g.Group("/reminders", jwt)
	rg.GET("", api.query)
	rg.POST("", api.create)
	rg.PUT("/:id", api.update)
	rg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *reminderApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	reminders, err := api.svc.QueryReminders(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying reminders")
	}
	if reminders == nil {
		reminders = []school.Reminder{}
	}
	return ctx.JSON(http.StatusOK, reminders)
}

func (api *reminderApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data school.NewReminder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReminder")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rem, err := api.svc.CreateReminder(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rem)
}

func (api *reminderApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateReminder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateReminder")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rem, err := api.svc.UpdateReminder(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rem)
}

func (api *reminderApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteReminder(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
