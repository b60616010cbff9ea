package feed

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oggyb/birdie/internal/server"
)

// Registrar mounts the feed endpoints.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the feed service.
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// RegisterRoutes mounts the swipe deck and the liked-you list under /home.
func (r *Registrar) RegisterRoutes(router fiber.Router) {
	home := router.Group("/home")
	home.Get("/feed", r.handleFeed)
	home.Get("/liked-you", r.handleLikedYou)
	home.Get("/liked-you/count", r.handleCountLikedYou)
}

func (r *Registrar) handleFeed(c *fiber.Ctx) error {
	userID, err := server.CallerOrQuery(c)
	if err != nil {
		return server.Fail(c, err)
	}
	cards, err := r.svc.Feed(c.UserContext(), userID)
	if err != nil {
		return server.Fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "count": len(cards), "data": cards})
}

func (r *Registrar) handleLikedYou(c *fiber.Ctx) error {
	userID, err := server.CallerOrQuery(c)
	if err != nil {
		return server.Fail(c, err)
	}
	var token *string
	if t := c.Query("paginationToken"); t != "" {
		token = &t
	}
	page, err := r.svc.LikedYou(c.UserContext(), userID, token, server.QueryInt(c, "limit", defaultLikedYouPage))
	if err != nil {
		return server.Fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":             true,
		"count":               len(page.Likers),
		"data":                page.Likers,
		"nextPaginationToken": page.NextPaginationToken,
	})
}

func (r *Registrar) handleCountLikedYou(c *fiber.Ctx) error {
	userID, err := server.CallerOrQuery(c)
	if err != nil {
		return server.Fail(c, err)
	}
	n, err := r.svc.CountLikedYou(c.UserContext(), userID)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, fiber.Map{"count": n})
}
