package httpapi

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	"github.com/i474232898/agri-weather/internal/forecast"
)

//go:embed templates/*.html
var templateFS embed.FS

// NewViews returns the template engine for fiber.Config.Views.
func NewViews() *html.Engine {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("temp", formatTemp)
	return engine
}

type indexView struct {
	Error     string
	Locations []string
	Selected  string
	Summary   *forecast.Summary
	Trend     []forecast.DayPoint
	Records   []forecast.Record
}

func (d *Dashboard) index(c *fiber.Ctx) error {
	view := indexView{}

	if err := d.startupError(); err != nil {
		view.Error = err.Error()
		return d.render(c, fiber.StatusServiceUnavailable, view)
	}

	q, err := parseLocationQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	view.Selected = q.Location

	ctx := c.UserContext()
	if view.Locations, err = d.service.Locations(ctx); err != nil {
		return d.queryError(err)
	}

	records, err := d.service.Forecasts(ctx, q.Location)
	switch {
	case errors.Is(err, forecast.ErrNoData):
		view.Error = "no forecast data for the selected location"
	case err != nil:
		return d.queryError(err)
	default:
		summary := forecast.Summarize(q.Location, records)
		view.Summary = &summary
		view.Trend = forecast.DailyTrend(records)
		view.Records = records
	}

	return d.render(c, fiber.StatusOK, view)
}

func (d *Dashboard) render(c *fiber.Ctx, status int, view indexView) error {
	if err := c.Status(status).Render("index", view); err != nil {
		d.logger.Error("render dashboard", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render dashboard")
	}
	return nil
}

func formatTemp(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64) + " °C"
}
