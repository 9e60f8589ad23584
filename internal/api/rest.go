package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ladlehq/ladle/internal/api/imports"
	"github.com/ladlehq/ladle/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr    string `yaml:"host" env:"HOST_ADDR" env-default:"0.0.0.0"`
		HostPort    string `yaml:"port" env:"LISTEN_PORT" env-default:"8080"`
		AccessToken string `yaml:"access_token" env:"PROTECT_WITH_TOKEN"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The RestGateway is a thin wrapper around the Echo HTTP router. Its
	// sole responsibility is to expose the import endpoint and to enforce
	// the optional process-wide bearer token.
	RestGateway struct {
		config            *RestConfig
		ec                *echo.Echo
		importsController controller
	}
)

// NewRestGateway constructs the Echo router and populates it with the
// import route. When an access token is configured, every request must
// carry it as a bearer credential; without one, the gateway is open.
func NewRestGateway(config *RestConfig, importService imports.ImportService) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	gateway := &RestGateway{
		config:            config,
		ec:                ec,
		importsController: imports.New(validator.New(), importService),
	}

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	if config.AccessToken != "" {
		ec.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Validator: func(key string, ec echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(config.AccessToken)) == 1, nil
			},
			ErrorHandler: func(err error, ec echo.Context) error {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			},
		}))
	}

	gateway.importsController.SetRoutes(ec.Group(""))

	return gateway
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr + ":" + gateway.config.HostPort); err != nil {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
