package photo

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oggyb/birdie/internal/server"
)

// Registrar mounts the photo endpoints.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the photo service.
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// RegisterRoutes mounts /photos. Every photo is addressed through its owner.
func (r *Registrar) RegisterRoutes(router fiber.Router) {
	user := router.Group("/photos/user/:userId")
	user.Get("/", r.handleList)
	user.Post("/", r.handleAdd)
	user.Delete("/", r.handleDeleteAll)
	user.Get("/count", r.handleCount)
	user.Get("/primary", r.handlePrimary)
	user.Put("/reorder", r.handleReorder)
	user.Get("/:photoId", r.handleGet)
	user.Put("/:photoId/primary", r.handleSetPrimary)
	user.Delete("/:photoId", r.handleDelete)
}

func (r *Registrar) handleList(c *fiber.Ctx) error {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return server.Fail(c, err)
	}
	rows, err := r.svc.List(c.UserContext(), userID)
	if err != nil {
		return server.Fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "count": len(rows), "data": rows})
}

func (r *Registrar) handleAdd(c *fiber.Ctx) error {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return server.Fail(c, err)
	}
	var in AddInput
	if err := server.Bind(c, &in); err != nil {
		return server.Fail(c, err)
	}
	p, err := r.svc.Add(c.UserContext(), userID, in)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusCreated, p)
}

func (r *Registrar) handleDeleteAll(c *fiber.Ctx) error {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return server.Fail(c, err)
	}
	n, err := r.svc.DeleteAll(c.UserContext(), userID)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, fiber.Map{"message": "All photos deleted successfully", "deletedCount": n})
}

func (r *Registrar) handleCount(c *fiber.Ctx) error {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return server.Fail(c, err)
	}
	n, err := r.svc.Count(c.UserContext(), userID)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, fiber.Map{"count": n})
}

func (r *Registrar) handlePrimary(c *fiber.Ctx) error {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return server.Fail(c, err)
	}
	p, err := r.svc.Primary(c.UserContext(), userID)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, p)
}

type reorderRequest struct {
	PhotoIDs []uint64 `json:"photo_ids"`
}

func (r *Registrar) handleReorder(c *fiber.Ctx) error {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return server.Fail(c, err)
	}
	var req reorderRequest
	if err := server.Bind(c, &req); err != nil {
		return server.Fail(c, err)
	}
	rows, err := r.svc.Reorder(c.UserContext(), userID, req.PhotoIDs)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, rows)
}

func (r *Registrar) handleGet(c *fiber.Ctx) error {
	userID, photoID, err := ids(c)
	if err != nil {
		return server.Fail(c, err)
	}
	p, err := r.svc.Get(c.UserContext(), userID, photoID)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, p)
}

func (r *Registrar) handleSetPrimary(c *fiber.Ctx) error {
	userID, photoID, err := ids(c)
	if err != nil {
		return server.Fail(c, err)
	}
	p, err := r.svc.SetPrimary(c.UserContext(), userID, photoID)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, p)
}

func (r *Registrar) handleDelete(c *fiber.Ctx) error {
	userID, photoID, err := ids(c)
	if err != nil {
		return server.Fail(c, err)
	}
	res, err := r.svc.Delete(c.UserContext(), userID, photoID)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, res)
}

func ids(c *fiber.Ctx) (uint64, uint64, error) {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return 0, 0, err
	}
	photoID, err := server.ParamID(c, "photoId")
	if err != nil {
		return 0, 0, err
	}
	return userID, photoID, nil
}
