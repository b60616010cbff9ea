package notification

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oggyb/birdie/internal/server"
)

// Registrar mounts the notification endpoints.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the notification service.
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// RegisterRoutes mounts the notification endpoints under /home.
func (r *Registrar) RegisterRoutes(router fiber.Router) {
	home := router.Group("/home")
	home.Get("/notifications", r.handleList)
	home.Get("/notifications/unread-count", r.handleUnreadCount)
	home.Put("/notifications/:id/read", r.handleMarkAsRead)
}

func (r *Registrar) handleList(c *fiber.Ctx) error {
	userID, err := server.CallerOrQuery(c)
	if err != nil {
		return server.Fail(c, err)
	}

	var token *string
	if t := c.Query("paginationToken"); t != "" {
		token = &t
	}

	page, err := r.svc.List(c.UserContext(), userID, token, server.QueryInt(c, "limit", defaultPageSize))
	if err != nil {
		return server.Fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success":             true,
		"count":               len(page.Items),
		"data":                page.Items,
		"nextPaginationToken": page.NextPaginationToken,
	})
}

func (r *Registrar) handleUnreadCount(c *fiber.Ctx) error {
	userID, err := server.CallerOrQuery(c)
	if err != nil {
		return server.Fail(c, err)
	}
	n, err := r.svc.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, fiber.Map{"unreadCount": n})
}

func (r *Registrar) handleMarkAsRead(c *fiber.Ctx) error {
	userID, err := server.RequireCaller(c)
	if err != nil {
		return server.Fail(c, err)
	}
	id, err := server.ParamID(c, "id")
	if err != nil {
		return server.Fail(c, err)
	}
	if err := r.svc.MarkAsRead(c.UserContext(), userID, id); err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, fiber.Map{"notificationId": id, "isRead": true})
}
