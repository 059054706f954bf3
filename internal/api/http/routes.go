package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/wildfire-analysis/internal/climate"
	"github.com/i474232898/wildfire-analysis/internal/store"
	"github.com/i474232898/wildfire-analysis/internal/wildfire"
)

var validate = validator.New()

const dayLayout = "2006-01-02"

// Services are the backends behind the API. Wildfire may be nil when
// perimeter loading is disabled.
type Services struct {
	Climate        *climate.Service
	Wildfire       *wildfire.Service
	DefaultDataset string
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc Services) {
	v1 := app.Group("/api/v1")

	v1.Get("/climate/datasets", func(c *fiber.Ctx) error {
		type datasetInfo struct {
			Name     string         `json:"name"`
			Source   string         `json:"source"`
			Fields   climate.Fields `json:"fields"`
			Stats    climate.Stats  `json:"stats"`
			Years    []int          `json:"years"`
			LoadedAt time.Time      `json:"loadedAt"`
		}
		datasets := svc.Climate.Datasets()
		out := make([]datasetInfo, 0, len(datasets))
		for _, ds := range datasets {
			out = append(out, datasetInfo{
				Name:     ds.Name,
				Source:   ds.Source,
				Fields:   ds.Fields,
				Stats:    ds.Stats,
				Years:    ds.Index.Years(),
				LoadedAt: ds.LoadedAt,
			})
		}
		return c.JSON(fiber.Map{"datasets": out})
	})

	v1.Get("/climate/datasets/:name/versions", func(c *fiber.Ctx) error {
		type versionInfo struct {
			Source   string        `json:"source"`
			Stats    climate.Stats `json:"stats"`
			Years    []int         `json:"years"`
			LoadedAt time.Time     `json:"loadedAt"`
		}
		name := c.Params("name")
		versions, err := svc.Climate.DatasetVersions(name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "dataset not loaded")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load dataset versions")
		}
		out := make([]versionInfo, 0, len(versions))
		for _, ds := range versions {
			out = append(out, versionInfo{
				Source:   ds.Source,
				Stats:    ds.Stats,
				Years:    ds.Index.Years(),
				LoadedAt: ds.LoadedAt,
			})
		}
		return c.JSON(fiber.Map{"dataset": name, "versions": out})
	})

	v1.Get("/climate/years", func(c *fiber.Ctx) error {
		ds, err := svc.dataset(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"dataset": ds.Name, "years": ds.Index.Years()})
	})

	v1.Get("/climate/categories", func(c *fiber.Ctx) error {
		q := yearQuery{Year: c.QueryInt("year")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		ds, err := svc.dataset(c)
		if err != nil {
			return err
		}
		categories := ds.Index.Categories(q.Year)
		if len(categories) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no data for requested year")
		}
		return c.JSON(fiber.Map{
			"dataset":    ds.Name,
			"year":       q.Year,
			"months":     ds.Index.Months(q.Year),
			"categories": categories,
		})
	})

	v1.Get("/climate/series", func(c *fiber.Ctx) error {
		q := seriesQuery{Year: c.QueryInt("year"), Category: c.Query("category")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		ds, err := svc.dataset(c)
		if err != nil {
			return err
		}
		return c.JSON(ds.Index.Series(q.Year, q.Category))
	})

	v1.Get("/climate/compare", func(c *fiber.Ctx) error {
		q := compareQuery{
			Year:      c.QueryInt("year"),
			OtherYear: c.QueryInt("other_year"),
			Category:  c.Query("category"),
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		ds, err := svc.dataset(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"dataset": ds.Name,
			"series":  ds.Index.Compare(q.Year, q.OtherYear, q.Category),
		})
	})

	v1.Get("/temperature", func(c *fiber.Ctx) error {
		var q temperatureQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		report, err := svc.Climate.Temperature(c.UserContext(), q.City, q.Start, q.End)
		if err != nil {
			return temperatureError(err)
		}
		return c.JSON(report)
	})

	v1.Get("/temperature/history", func(c *fiber.Ctx) error {
		q := cityQuery{City: c.Query("city")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		index, stats, err := svc.Climate.History(c.UserContext(), q.City)
		if err != nil {
			return temperatureError(err)
		}
		return c.JSON(fiber.Map{"city": q.City, "monthly": index, "stats": stats})
	})

	v1.Get("/wildfires", func(c *fiber.Ctx) error {
		snap, err := svc.snapshot()
		if err != nil {
			return err
		}
		return c.JSON(snap)
	})

	v1.Get("/wildfires/acreage", func(c *fiber.Ctx) error {
		snap, err := svc.snapshot()
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"fetchedAt": snap.FetchedAt,
			"fields":    snap.AcreageBy,
			"index":     snap.Acreage,
			"stats":     snap.AcreageStats,
		})
	})
}

func (s Services) dataset(c *fiber.Ctx) (climate.Dataset, error) {
	name := c.Query("dataset", s.DefaultDataset)
	if name == "" {
		return climate.Dataset{}, fiber.NewError(fiber.StatusBadRequest, "dataset query parameter is required")
	}
	ds, err := s.Climate.Dataset(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return climate.Dataset{}, fiber.NewError(fiber.StatusNotFound, "dataset not loaded")
		}
		return climate.Dataset{}, fiber.NewError(fiber.StatusInternalServerError, "failed to load dataset")
	}
	return ds, nil
}

func (s Services) snapshot() (wildfire.Snapshot, error) {
	if s.Wildfire == nil {
		return wildfire.Snapshot{}, fiber.NewError(fiber.StatusServiceUnavailable, "wildfire perimeters are disabled")
	}
	snap, err := s.Wildfire.Latest()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return wildfire.Snapshot{}, fiber.NewError(fiber.StatusNotFound, "wildfire perimeters not loaded yet")
		}
		return wildfire.Snapshot{}, fiber.NewError(fiber.StatusInternalServerError, "failed to load wildfire perimeters")
	}
	return snap, nil
}

func temperatureError(err error) error {
	switch {
	case errors.Is(err, climate.ErrInvalidRange):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, climate.ErrLocationNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no stored readings for requested city")
	case errors.Is(err, climate.ErrHistoryDisabled):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusBadGateway, "failed to fetch temperature data")
	}
}

type yearQuery struct {
	Year int `validate:"required,gte=1"`
}

type seriesQuery struct {
	Year     int    `validate:"required,gte=1"`
	Category string `validate:"required"`
}

type compareQuery struct {
	Year      int    `validate:"required,gte=1"`
	OtherYear int    `validate:"required,gte=1"`
	Category  string `validate:"required"`
}

type cityQuery struct {
	City string `validate:"required"`
}

// temperatureQuery holds query parameters for the temperature endpoint. Both
// dates are optional; when given, both are required and ordered.
type temperatureQuery struct {
	City  string    `validate:"required"`
	Start time.Time `validate:"required_with=End"`
	End   time.Time `validate:"required_with=Start"`
}

func (q *temperatureQuery) bind(c *fiber.Ctx) error {
	q.City = c.Query("city")

	var err error
	if s := c.Query("start"); s != "" {
		if q.Start, err = time.Parse(dayLayout, s); err != nil {
			return errors.New("invalid start; use YYYY-MM-DD")
		}
	}
	if s := c.Query("end"); s != "" {
		if q.End, err = time.Parse(dayLayout, s); err != nil {
			return errors.New("invalid end; use YYYY-MM-DD")
		}
	}
	return validate.Struct(q)
}
