package swipe

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/grpc"

	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/server"
)

const (
	ServiceName        = "birdie.swipe.v1.SwipeService"
	ProcessSwipeMethod = "/" + ServiceName + "/ProcessSwipe"
)

// ProcessSwipeRequest is the wire form of a swipe on both transports.
type ProcessSwipeRequest struct {
	SwiperID  uint64 `json:"swiperId"`
	SwipedID  uint64 `json:"swipedId"`
	SwipeType string `json:"swipeType"`
}

// ProcessSwipeResponse is the wire form of a Result.
type ProcessSwipeResponse struct {
	Success         bool          `json:"success"`
	SwipedID        uint64        `json:"swipedId"`
	Type            string        `json:"type"`
	IsMatch         bool          `json:"isMatch"`
	MatchDetails    *MatchDetails `json:"matchDetails"`
	RemainingSwipes int           `json:"remainingSwipes"`
}

func toResponse(r *Result) *ProcessSwipeResponse {
	return &ProcessSwipeResponse{
		Success:         true,
		SwipedID:        r.SwipedID,
		Type:            string(r.Type),
		IsMatch:         r.IsMatch,
		MatchDetails:    r.Match,
		RemainingSwipes: r.RemainingSwipes,
	}
}

// SwipeServer is the gRPC handler contract of SwipeService.
type SwipeServer interface {
	ProcessSwipeRPC(ctx context.Context, req *ProcessSwipeRequest) (*ProcessSwipeResponse, error)
}

// ServiceDesc describes SwipeService for grpc.Server. Messages travel with
// the JSON codec (content-subtype "json").
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SwipeServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "ProcessSwipe",
		Handler:    processSwipeHandler,
	}},
	Streams:  []grpc.StreamDesc{},
	Metadata: "birdie/swipe/v1/swipe.proto",
}

func processSwipeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ProcessSwipeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SwipeServer).ProcessSwipeRPC(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ProcessSwipeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SwipeServer).ProcessSwipeRPC(ctx, req.(*ProcessSwipeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ProcessSwipeRPC implements SwipeServer.
func (s *Service) ProcessSwipeRPC(ctx context.Context, req *ProcessSwipeRequest) (*ProcessSwipeResponse, error) {
	res, err := s.ProcessSwipe(ctx, req.SwiperID, req.SwipedID, req.SwipeType)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return toResponse(res), nil
}

// Registrar ties the swipe engine into the gRPC server and the REST app.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the swipe service.
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches SwipeService to the gRPC server.
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, r.svc)
}

// RegisterRoutes mounts the swipe and match endpoints.
func (r *Registrar) RegisterRoutes(router fiber.Router) {
	home := router.Group("/home")
	home.Post("/swipe", r.handleSwipe)
	home.Get("/swipes/remaining", r.handleRemaining)
	home.Get("/matches", r.handleMatches)
}

// swipeBody is the REST body. Ids may arrive as numbers or numeric strings.
type swipeBody struct {
	SwiperID  server.ID `json:"swiperId"`
	SwipedID  server.ID `json:"swipedId"`
	SwipeType string    `json:"swipeType"`
}

func (r *Registrar) handleSwipe(c *fiber.Ctx) error {
	var body swipeBody
	if err := server.Bind(c, &body); err != nil {
		return server.Fail(c, err)
	}
	req := ProcessSwipeRequest{
		SwiperID:  uint64(body.SwiperID),
		SwipedID:  uint64(body.SwipedID),
		SwipeType: body.SwipeType,
	}
	if id, ok := server.CallerID(c); ok {
		req.SwiperID = id
	}
	if req.SwiperID == 0 || req.SwipedID == 0 || req.SwipeType == "" {
		return server.Fail(c, svcErr.InvalidInput("Missing required fields"))
	}

	res, err := r.svc.ProcessSwipe(c.UserContext(), req.SwiperID, req.SwipedID, req.SwipeType)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, toResponse(res))
}

func (r *Registrar) handleRemaining(c *fiber.Ctx) error {
	userID, err := server.RequireCaller(c)
	if err != nil {
		return server.Fail(c, err)
	}
	left, err := r.svc.RemainingSwipes(c.UserContext(), userID)
	if err != nil {
		return server.Fail(c, err)
	}
	return server.OK(c, fiber.StatusOK, fiber.Map{"remainingSwipes": left})
}

func (r *Registrar) handleMatches(c *fiber.Ctx) error {
	userID, err := server.RequireCaller(c)
	if err != nil {
		return server.Fail(c, err)
	}
	matches, err := r.svc.ListMatches(c.UserContext(), userID, server.QueryInt(c, "limit", 50))
	if err != nil {
		return server.Fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "count": len(matches), "data": matches})
}
