package server

import (
	"github.com/gofiber/fiber/v2"
	"google.golang.org/grpc"
)

// Registrar is a common interface for all gRPC service registrars
type Registrar interface {
	Register(s *grpc.Server)
}

// RouteRegistrar attaches REST handlers under the /api group.
type RouteRegistrar interface {
	RegisterRoutes(router fiber.Router)
}
