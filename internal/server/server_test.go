package server_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/server"
)

func TestJSONCodec(t *testing.T) {
	c := server.JSONCodec{}
	assert.Equal(t, "json", c.Name())

	type msg struct {
		SwiperID uint64 `json:"swiperId"`
	}
	raw, err := c.Marshal(msg{SwiperID: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"swiperId":7}`, string(raw))

	var out msg
	require.NoError(t, c.Unmarshal(raw, &out))
	assert.EqualValues(t, 7, out.SwiperID)
	require.NoError(t, c.Unmarshal(nil, &out))

	// protobuf messages go through protojson
	raw, err = c.Marshal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "SERVING")

	var hc healthpb.HealthCheckResponse
	require.NoError(t, c.Unmarshal([]byte(`{"status":"SERVING","extra":1}`), &hc))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hc.Status)
}

type testRoutes struct{}

func (testRoutes) RegisterRoutes(router fiber.Router) {
	router.Get("/whoami", func(c *fiber.Ctx) error {
		id, err := server.RequireCaller(c)
		if err != nil {
			return server.Fail(c, err)
		}
		return server.OK(c, fiber.StatusOK, fiber.Map{"id": id})
	})
	router.Get("/either", func(c *fiber.Ctx) error {
		id, err := server.CallerOrQuery(c)
		if err != nil {
			return server.Fail(c, err)
		}
		return server.OK(c, fiber.StatusOK, fiber.Map{"id": id})
	})
	router.Get("/items/:id", func(c *fiber.Ctx) error {
		id, err := server.ParamID(c, "id")
		if err != nil {
			return server.Fail(c, err)
		}
		return server.OK(c, fiber.StatusOK, fiber.Map{"id": id, "limit": server.QueryInt(c, "limit", 20)})
	})
	router.Get("/boom", func(c *fiber.Ctx) error {
		return server.Fail(c, svcErr.ErrQuotaExceeded)
	})
}

func TestHTTPApp(t *testing.T) {
	app := server.NewHTTPApp(slog.New(slog.NewTextHandler(io.Discard, nil)), testRoutes{})

	get := func(path, userID string) (int, map[string]any) {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if userID != "" {
			req.Header.Set(server.HeaderUserID, userID)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}
	data := func(body map[string]any) map[string]any { return body["data"].(map[string]any) }

	cases := []struct {
		name, path, userID string
		code               int
		errMsg             string
	}{
		{"caller from header", "/api/whoami", "5", http.StatusOK, ""},
		{"missing caller", "/api/whoami", "", http.StatusBadRequest, "X-User-ID header is required"},
		{"malformed header", "/api/whoami", "abc", http.StatusBadRequest, "X-User-ID must be a positive integer"},
		{"zero header", "/api/whoami", "0", http.StatusBadRequest, "X-User-ID must be a positive integer"},
		{"query fallback", "/api/either?userId=9", "", http.StatusOK, ""},
		{"header beats query", "/api/either?userId=9", "4", http.StatusOK, ""},
		{"bad query", "/api/either?userId=x", "", http.StatusBadRequest, "userId must be a positive integer"},
		{"no id at all", "/api/either", "", http.StatusBadRequest, "User ID required"},
		{"bad param", "/api/items/zero", "", http.StatusBadRequest, "id must be a positive integer"},
		{"quota", "/api/boom", "", http.StatusForbidden, "Daily swipe limit reached"},
		{"unknown route", "/api/nope", "", http.StatusNotFound, "Endpoint not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := get(tc.path, tc.userID)
			assert.Equal(t, tc.code, code)
			if tc.errMsg != "" {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tc.errMsg, body["error"])
			} else {
				assert.Equal(t, true, body["success"])
			}
		})
	}

	_, body := get("/api/either?userId=9", "4")
	assert.EqualValues(t, 4, data(body)["id"])

	_, body = get("/api/items/3?limit=5", "")
	assert.EqualValues(t, 3, data(body)["id"])
	assert.EqualValues(t, 5, data(body)["limit"])

	code, body := get("/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestID_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		in      string
		want    server.ID
		wantErr bool
	}{
		{`5`, 5, false},
		{`"5"`, 5, false},
		{`" 12 "`, 12, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`-1`, 0, true},
		{`"x"`, 0, true},
		{`1.5`, 0, true},
		{`true`, 0, true},
	}
	for _, tc := range cases {
		var body struct {
			ID server.ID `json:"id"`
		}
		err := json.Unmarshal([]byte(`{"id":`+tc.in+`}`), &body)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, body.ID, tc.in)
	}
}
