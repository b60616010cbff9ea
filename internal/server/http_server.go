package server

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/oggyb/birdie/internal/config"
	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/logger"
)

// HeaderUserID carries the caller id resolved by the identity gateway.
const HeaderUserID = "X-User-ID"

const localsUserID = "userID"

// NewHTTPApp builds the REST app: recover, request logging, identity, then
// every registrar's routes under /api.
func NewHTTPApp(log *slog.Logger, registrars ...RouteRegistrar) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "birdie",
		BodyLimit:             12 * 1024 * 1024, // base64 photos
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestLogger(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})

	api := app.Group("/api", Identity())
	for _, r := range registrars {
		r.RegisterRoutes(api)
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "Endpoint not found"})
	})
	return app
}

// StartHTTPServer serves app on the configured address until Shutdown.
func StartHTTPServer(cfg *config.Config, app *fiber.App) error {
	return app.Listen(fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port))
}

// Identity stores the caller id from X-User-ID when present. A malformed
// header is rejected; an absent one is left for handlers to decide.
func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(HeaderUserID))
		if raw == "" {
			return c.Next()
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return Fail(c, svcErr.InvalidInput("X-User-ID must be a positive integer"))
		}
		c.Locals(localsUserID, id)
		return c.Next()
	}
}

// CallerID returns the id set by Identity.
func CallerID(c *fiber.Ctx) (uint64, bool) {
	id, ok := c.Locals(localsUserID).(uint64)
	return id, ok && id > 0
}

// RequireCaller is CallerID that fails with InvalidInput when absent.
func RequireCaller(c *fiber.Ctx) (uint64, error) {
	id, ok := CallerID(c)
	if !ok {
		return 0, svcErr.InvalidInput("X-User-ID header is required")
	}
	return id, nil
}

// CallerOrQuery is RequireCaller that also accepts a userId query
// parameter, for clients that have no identity gateway in front of them.
func CallerOrQuery(c *fiber.Ctx) (uint64, error) {
	if id, ok := CallerID(c); ok {
		return id, nil
	}
	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return 0, svcErr.InvalidInput("userId must be a positive integer")
		}
		return id, nil
	}
	return 0, svcErr.InvalidInput("User ID required")
}

// OK writes the success envelope.
func OK(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"success": true, "data": data})
}

// Fail writes the error envelope with the status derived from the error kind.
func Fail(c *fiber.Ctx, err error) error {
	kind := svcErr.KindOf(err)
	code := svcErr.HTTPStatus(kind)
	if code >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			"method", c.Method(), "path", c.Path(), "kind", string(kind), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "error": svcErr.PublicMessage(err)})
}

// Bind decodes the JSON body into v.
func Bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return svcErr.InvalidInput("Invalid request body")
	}
	return nil
}

// ParamID parses a positive integer route parameter.
func ParamID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.InvalidInput(fmt.Sprintf("%s must be a positive integer", name))
	}
	return id, nil
}

// ID is a positive integer id in a JSON body. It accepts a number or a
// string of digits ("5"); null and "" decode to 0, meaning absent.
type ID uint64

func (id *ID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*id = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*id = 0
			return nil
		}
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", raw)
	}
	*id = ID(v)
	return nil
}

// QueryInt reads an integer query parameter, falling back to def.
func QueryInt(c *fiber.Ctx, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil {
		return v
	}
	return def
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"success": false, "error": fe.Message})
	}
	return Fail(c, err)
}

func requestLogger(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debug("http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}
