package server

import (
	"runtime"
	"sort"
	"time"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"

	"github.com/rise-and-shine/dropsync/observability/logger"
)

// Middleware is a fiber handler with a priority; higher priorities run first.
type Middleware struct {
	Priority int
	Handler  fiber.Handler
}

func applyMiddlewares(app *fiber.App, middlewares []Middleware) {
	sort.SliceStable(middlewares, func(i, j int) bool {
		return middlewares[i].Priority > middlewares[j].Priority
	})
	for _, mw := range middlewares {
		if mw.Handler == nil {
			continue
		}
		app.Use(mw.Handler)
	}
}

func recoveryMW() Middleware {
	return Middleware{
		Priority: 1000,
		Handler: func(c *fiber.Ctx) (err error) {
			defer func() {
				if r := recover(); r != nil {
					stackTrace := make([]byte, 4096)
					stackTrace = stackTrace[:runtime.Stack(stackTrace, false)]

					err = errx.New("[server]: panic recovered", errx.WithDetails(errx.D{
						"stack_trace":   string(stackTrace),
						"panic_message": r,
					}))
				}
			}()

			return c.Next()
		},
	}
}

func loggerMW(log logger.Logger) Middleware {
	return Middleware{
		Priority: 500,
		Handler: func(c *fiber.Ctx) error {
			start := time.Now()
			err := c.Next()

			status := c.Response().StatusCode()
			if err != nil {
				status = mapErrorTypeToHTTPStatusCode(mapAnyErrorToErrorX(err).Type())
			}

			l := log.
				With("http_status_code", status).
				With("http_method", c.Method()).
				With("http_path", c.Path()).
				With("duration", time.Since(start))

			switch {
			case status >= 500 && err != nil:
				l.Errorx(mapAnyErrorToErrorX(err))
			case status >= 400:
				l.Warn("[server]: request rejected")
			default:
				l.Debug("[server]: request served")
			}

			return err
		},
	}
}
