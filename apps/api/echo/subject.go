package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/school"
)

type subjectApi struct {
	svc        school.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func registerSubjectAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc school.ServiceInterface,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := subjectApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	sg := g.Group("/subjects", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *subjectApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	classID := ctx.QueryParam("class_id")
	if classID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "class_id is required"})
	}

	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), claims.Subject, classID)
	if err != nil {
		return err
	}
	if subjects == nil {
		subjects = []school.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *subjectApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.CreateSubject(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *subjectApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data school.UpdateSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.UpdateSubject(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subjectApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteSubject(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
