package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/school"
	"github.com/trezcool/kazi/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Conf           *core.Config
		Logger         core.Logger
		UserSvc        user.ServiceInterface
		SchoolSvc      school.ServiceInterface
		Validate       *validator.Validate
		Translator     ut.Translator
		SignalShutdown func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf
	initJWTConfig(conf)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerAuthAPI(v1, jwt, s.opts.UserSvc, s.opts.Validate, s.opts.Translator)
	registerClassAPI(v1, jwt, s.opts.SchoolSvc, s.opts.Validate, s.opts.Translator)
	registerSubjectAPI(v1, jwt, s.opts.SchoolSvc, s.opts.Validate, s.opts.Translator)
	registerAssignmentAPI(v1, jwt, s.opts.SchoolSvc, s.opts.Validate, s.opts.Translator)
	registerReminderAPI(v1, jwt, s.opts.SchoolSvc, s.opts.Validate, s.opts.Translator)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Kazi API!")
}
