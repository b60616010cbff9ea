package profile

import (
	"github.com/gofiber/fiber/v2"

	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/server"
)

// Registrar mounts the profile and interest endpoints.
type Registrar struct {
	users     *UserService
	interests *InterestService
}

// NewRegistrar creates a new Registrar for the profile services.
func NewRegistrar(users *UserService, interests *InterestService) *Registrar {
	return &Registrar{users: users, interests: interests}
}

// RegisterRoutes mounts /users and /user-interests.
func (r *Registrar) RegisterRoutes(router fiber.Router) {
	users := router.Group("/users")
	users.Get("/health/check", r.handleHealth)
	users.Post("/", r.handleCreateUser)
	users.Get("/", r.handleListUsers)
	users.Get("/:firebase_uid", r.handleGetUser)
	users.Put("/:firebase_uid", r.handleUpdateUser)
	users.Delete("/:firebase_uid", r.handleDeleteUser)

	interests := router.Group("/user-interests")
	interests.Get("/options/available", r.handleOptions)
	interests.Get("/:userId", r.handleListInterests)
	interests.Post("/:userId", r.handleAddInterest)
	interests.Post("/:userId/multiple", r.handleAddInterests)
	interests.Put("/:userId", r.handleReplaceInterests)
	interests.Delete("/:userId/:interestName", r.handleRemoveInterest)
	interests.Delete("/:userId", r.handleRemoveAllInterests)
}

func (r *Registrar) handleHealth(c *fiber.Ctx) error {
	if err := r.users.Health(c.UserContext()); err != nil {
		return server.Fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User service is healthy"})
}

func (r *Registrar) handleCreateUser(c *fiber.Ctx) error {
	var in CreateUserInput
	if err := server.Bind(c, &in); err != nil {
		return server.Fail(c, err)
	}
	u, err := r.users.Create(c.UserContext(), in)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusCreated, u)
}

func (r *Registrar) handleListUsers(c *fiber.Ctx) error {
	users, err := r.users.List(c.UserContext(), server.QueryInt(c, "limit", defaultListLimit), server.QueryInt(c, "offset", 0))
	if err != nil {
		return server.Fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "count": len(users), "data": users})
}

func (r *Registrar) handleGetUser(c *fiber.Ctx) error {
	u, err := r.users.Get(c.UserContext(), c.Params("firebase_uid"))
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, u)
}

func (r *Registrar) handleUpdateUser(c *fiber.Ctx) error {
	var updates map[string]any
	if err := server.Bind(c, &updates); err != nil {
		return server.Fail(c, err)
	}
	u, err := r.users.Update(c.UserContext(), c.Params("firebase_uid"), updates)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, u)
}

func (r *Registrar) handleDeleteUser(c *fiber.Ctx) error {
	u, err := r.users.Delete(c.UserContext(), c.Params("firebase_uid"))
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, fiber.Map{
		"user_id":      u.ID,
		"firebase_uid": u.FirebaseUID,
		"email":        u.Email,
	})
}

func (r *Registrar) handleOptions(c *fiber.Ctx) error {
	return server.OK(c, fiber.StatusOK, r.interests.Options())
}

func (r *Registrar) handleListInterests(c *fiber.Ctx) error {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return server.Fail(c, err)
	}
	rows, err := r.interests.List(c.UserContext(), userID)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, rows)
}

type addInterestRequest struct {
	InterestName string `json:"interest_name"`
}

type interestsRequest struct {
	Interests []string `json:"interests"`
}

func (r *Registrar) handleAddInterest(c *fiber.Ctx) error {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return server.Fail(c, err)
	}
	var req addInterestRequest
	if err := server.Bind(c, &req); err != nil {
		return server.Fail(c, err)
	}
	if req.InterestName == "" {
		return server.Fail(c, svcErr.InvalidInput("interest_name is required"))
	}
	row, err := r.interests.Add(c.UserContext(), userID, req.InterestName)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusCreated, row)
}

func (r *Registrar) handleAddInterests(c *fiber.Ctx) error {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return server.Fail(c, err)
	}
	var req interestsRequest
	if err := server.Bind(c, &req); err != nil {
		return server.Fail(c, err)
	}
	rows, err := r.interests.AddMany(c.UserContext(), userID, req.Interests)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusCreated, rows)
}

func (r *Registrar) handleReplaceInterests(c *fiber.Ctx) error {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return server.Fail(c, err)
	}
	var req interestsRequest
	if err := server.Bind(c, &req); err != nil {
		return server.Fail(c, err)
	}
	rows, err := r.interests.Replace(c.UserContext(), userID, req.Interests)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, rows)
}

func (r *Registrar) handleRemoveInterest(c *fiber.Ctx) error {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return server.Fail(c, err)
	}
	if err := r.interests.Remove(c.UserContext(), userID, c.Params("interestName")); err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, fiber.Map{"message": "Interest removed successfully"})
}

func (r *Registrar) handleRemoveAllInterests(c *fiber.Ctx) error {
	userID, err := server.ParamID(c, "userId")
	if err != nil {
		return server.Fail(c, err)
	}
	n, err := r.interests.RemoveAll(c.UserContext(), userID)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, fiber.Map{"message": "All interests removed successfully", "removedCount": n})
}
