// Package dashboard serves the query engine and district map over HTTP.
package dashboard

import (
	_ "embed"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/mwiater/geoassist/internal/geo"
	"github.com/mwiater/geoassist/internal/logging"
	"github.com/mwiater/geoassist/internal/metrics"
	"github.com/mwiater/geoassist/internal/query"
)

//go:embed static/index.html
var indexPage []byte

// Server owns the fiber app. The engine and boundaries are read-only and
// shared by every request.
type Server struct {
	listenAddr string
	engine     *query.Engine
	boundaries *geo.Boundaries
	app        *fiber.App
}

// NewServer wires the routes. boundaries may be nil, in which case the map
// endpoint answers 404 and the page shows no polygons.
func NewServer(addr string, engine *query.Engine, boundaries *geo.Boundaries) *Server {
	s := &Server{
		listenAddr: addr,
		engine:     engine,
		boundaries: boundaries,
		app: fiber.New(fiber.Config{
			ErrorHandler:          ErrorHandler,
			DisableStartupMessage: true,
		}),
	}

	var (
		check = s.app.Group("/check")
		api   = s.app.Group("/api")
	)
	s.app.Get("/", s.handleIndex)
	s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	check.Get("/healthy", s.handleHealthy)
	api.Post("/query", s.handleQuery)
	api.Get("/districts", s.handleDistricts)
	api.Get("/boundaries", s.handleBoundaries)
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// Run blocks serving on the configured address.
func (s *Server) Run() error {
	logging.LogEvent("[SERVE] listening on %s (%d districts)", s.listenAddr, s.engine.Districts().Len())
	return s.app.Listen(s.listenAddr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown() error {
	logging.LogEvent("[SERVE] server stopped")
	return s.app.Shutdown()
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(indexPage)
}

func (s *Server) handleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok", "districts": s.engine.Districts().Len()})
}

func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if c.BodyParser(&req) != nil {
		return ErrBadRequest()
	}
	req.Query = strings.TrimSpace(req.Query)
	if errs := req.Validate(); len(errs) > 0 {
		return NewValidationError(errs)
	}
	ans := s.engine.Answer(c.UserContext(), req.Query)
	// vectors are of no use to the page
	for i := range ans.Snippets {
		ans.Snippets[i].Entry.Embedding = nil
	}
	return c.JSON(ans)
}

func (s *Server) handleDistricts(c *fiber.Ctx) error {
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		rec, ok := s.engine.Districts().Lookup(name)
		if !ok {
			return ErrNotFound(name, "district")
		}
		return c.JSON(rec)
	}
	return c.JSON(s.engine.Districts().Records())
}

func (s *Server) handleBoundaries(c *fiber.Ctx) error {
	if s.boundaries == nil {
		return NewError(fiber.StatusNotFound, "district boundaries are not loaded")
	}
	// one highlight parameter per district, since names may contain commas
	var highlight []string
	for _, raw := range c.Context().QueryArgs().PeekMulti("highlight") {
		if name := strings.TrimSpace(string(raw)); name != "" {
			highlight = append(highlight, name)
		}
	}
	fc, err := s.boundaries.FeatureCollection(highlight)
	if err != nil {
		return err
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/geo+json")
	return c.Send(data)
}
