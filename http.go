package authstate

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// GuardMiddleware adapts a GuardFunc to fiber: redirect decisions
// become 302s carrying the returnUrl, allow falls through to the
// handler chain.
func GuardMiddleware(guard GuardFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, err := guard(c.UserContext(), c.OriginalURL())
		if err != nil {
			return errorJSON(c, err)
		}
		if !decision.Allow {
			return c.Redirect(decision.RedirectTarget, fiber.StatusFound)
		}
		return c.Next()
	}
}

// errorJSON renders the normalized `{code, message}` error shape. The
// HTTP status comes from the rich error's code; anything unshaped maps
// to a 500.
func errorJSON(c *fiber.Ctx, err error) error {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"code":    TextCodeUnknown,
			"message": messageFor(TextCodeUnknown, msgCtxGeneral),
		})
	}

	status := rich.Code
	if status < 400 || status > 599 {
		status = fiber.StatusInternalServerError
	}

	code := rich.TextCode
	if code == "" {
		code = TextCodeUnknown
	}

	return c.Status(status).JSON(fiber.Map{
		"code":    code,
		"message": rich.Message,
	})
}
