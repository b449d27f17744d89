package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core/school"
)

type classApi struct {
	svc        school.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func registerClassAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc school.ServiceInterface,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := classApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	cg := g.Group("/classes", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.POST("/join", api.join)

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	dg.POST("/leave", api.leave)
}

// Handlers

func (api *classApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	classes, err := api.svc.QueryClasses(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.ClassInfo{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	info, err := api.svc.CreateClass(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, info)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	detail, err := api.svc.GetClass(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *classApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteClass(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) join(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data school.JoinClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	info, err := api.svc.JoinClass(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, info)
}

func (api *classApi) leave(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.LeaveClass(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
