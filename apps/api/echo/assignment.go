package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core/school"
)

type assignmentApi struct {
	svc        school.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func registerAssignmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc school.ServiceInterface,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := assignmentApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	ag := g.Group("/assignments", jwt)
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
	ag.POST("/:id/complete", api.complete)
}

// Handlers

func (api *assignmentApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var filter school.AssignmentFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to AssignmentFilter")
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	asgs, err := api.svc.QueryAssignments(ctx.Request().Context(), claims.Subject, filter, ordering.Orderings)
	if err != nil {
		return err
	}
	if asgs == nil {
		asgs = []school.AssignmentInfo{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data school.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	info, err := api.svc.CreateAssignment(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, info)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	info, err := api.svc.UpdateAssignment(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteAssignment(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) complete(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data school.SetCompletion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetCompletion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cpl, err := api.svc.SetCompletion(ctx.Request().Context(), claims.Subject, ctx.Param("id"), *data.Completed)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cpl)
}
