package httpapi

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/agri-weather/internal/forecast"
)

var validate = validator.New()

// Dashboard holds the state shared by the HTTP handlers.
type Dashboard struct {
	service *forecast.Service
	logger  *zap.Logger

	mu         sync.RWMutex
	startupErr error
}

func NewDashboard(service *forecast.Service, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{service: service, logger: logger}
}

// SetStartupError records the failure of the sync run at startup. Until a manual
// sync succeeds, data endpoints answer 503 with its text.
func (d *Dashboard) SetStartupError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startupErr = err
}

func (d *Dashboard) startupError() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.startupErr
}

// ErrorHandler renders errors as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, dash *Dashboard) {
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		if dash.startupError() != nil {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":  status,
			"service": "agri-weather",
		})
	})

	app.Get("/", dash.index)

	v1 := app.Group("/api/v1")

	v1.Post("/sync", func(c *fiber.Ctx) error {
		result, err := dash.service.Sync(c.UserContext())
		if err != nil {
			return syncError(err)
		}
		dash.SetStartupError(nil)
		return c.JSON(result)
	})

	v1.Get("/locations", dash.requireData, func(c *fiber.Ctx) error {
		locs, err := dash.service.Locations(c.UserContext())
		if err != nil {
			return dash.queryError(err)
		}
		return c.JSON(fiber.Map{"locations": locs})
	})

	v1.Get("/forecasts", dash.requireData, func(c *fiber.Ctx) error {
		q, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		records, err := dash.service.Forecasts(c.UserContext(), q.Location)
		if err != nil {
			return dash.queryError(err)
		}
		return c.JSON(fiber.Map{
			"location": q.Location,
			"count":    len(records),
			"records":  records,
		})
	})

	v1.Get("/summary", dash.requireData, func(c *fiber.Ctx) error {
		q, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		summary, err := dash.service.Summary(c.UserContext(), q.Location)
		if err != nil {
			return dash.queryError(err)
		}
		return c.JSON(summary)
	})

	v1.Get("/trend", dash.requireData, func(c *fiber.Ctx) error {
		q, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		points, err := dash.service.Trend(c.UserContext(), q.Location)
		if err != nil {
			return dash.queryError(err)
		}
		return c.JSON(fiber.Map{
			"location": q.Location,
			"points":   points,
		})
	})
}

func (d *Dashboard) requireData(c *fiber.Ctx) error {
	if err := d.startupError(); err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return c.Next()
}

func (d *Dashboard) queryError(err error) error {
	if errors.Is(err, forecast.ErrNoData) {
		return fiber.NewError(fiber.StatusNotFound, "no forecast data for requested location")
	}
	d.logger.Error("query failed", zap.Error(err))
	return fiber.NewError(fiber.StatusInternalServerError, "failed to read forecast data")
}

func syncError(err error) error {
	var fetchErr *forecast.FetchError
	var parseErr *forecast.ParseError
	switch {
	case errors.As(err, &fetchErr), errors.As(err, &parseErr):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// locationQuery holds the optional location filter. Empty selects all locations.
type locationQuery struct {
	Location string `validate:"omitempty,max=64"`
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	q := locationQuery{Location: c.Query("location")}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}
