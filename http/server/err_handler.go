package server

import (
	"errors"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
)

const codeRouterError = "ROUTER_ERROR"

type errorSchema struct {
	Code    string         `json:"code"`
	Cause   string         `json:"cause"`
	Trace   string         `json:"trace,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func customErrorHandler(hideDetails bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		e := mapAnyErrorToErrorX(err)

		body := errorSchema{Code: e.Code(), Cause: e.Error()}
		if !hideDetails {
			body.Trace = e.Trace()
			body.Details = e.Details()
		}

		return c.Status(mapErrorTypeToHTTPStatusCode(e.Type())).JSON(fiber.Map{"error": body})
	}
}

func mapErrorTypeToHTTPStatusCode(t errx.Type) int {
	switch t {
	case errx.T_Authentication:
		return fiber.StatusUnauthorized
	case errx.T_NotFound:
		return fiber.StatusNotFound
	case errx.T_Validation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func mapAnyErrorToErrorX(err error) errx.ErrorX {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		t := errx.T_Internal
		switch {
		case fiberErr.Code == fiber.StatusNotFound:
			t = errx.T_NotFound
		case fiberErr.Code >= 400 && fiberErr.Code < 500:
			t = errx.T_Validation
		}

		err = errx.New(fiberErr.Message,
			errx.WithCode(codeRouterError),
			errx.WithType(t),
			errx.WithDetails(errx.D{"fiber_code": fiberErr.Code}),
		)
	}

	return errx.AsErrorX(err)
}
