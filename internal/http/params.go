package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// dateOnly is a JSON date in 2006-01-02 form.
type dateOnly struct {
	time.Time
}

func (d *dateOnly) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("%w: invalid date %q (want 2006-01-02)", model.ErrValidation, s)
	}
	d.Time = t
	return nil
}

func (d dateOnly) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

// timePtr converts an optional dateOnly to the model's *time.Time form.
func (d *dateOnly) timePtr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// costFilterFromQuery parses list/export query parameters into a filter.
// Validation happens in the service; this only converts types.
func costFilterFromQuery(c echo.Context) (model.CostFilter, error) {
	f := model.CostFilter{
		Category: c.QueryParam("category"),
		Status:   model.CostStatus(c.QueryParam("status")),
		VendorID: c.QueryParam("vendor_id"),
		Query:    c.QueryParam("q"),
		Sort:     model.CostSort(c.QueryParam("sort")),
	}

	switch c.QueryParam("order") {
	case "", "asc":
	case "desc":
		f.Descending = true
	default:
		return f, fmt.Errorf("%w: order must be asc or desc", model.ErrValidation)
	}
	var err error
	if f.From, err = queryDate(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return f, err
	}
	if f.MinCents, err = queryInt64(c, "min_cents"); err != nil {
		return f, err
	}
	if f.MaxCents, err = queryInt64(c, "max_cents"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(c, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s date %q (want 2006-01-02)", model.ErrValidation, name, s)
	}
	return &t, nil
}

func queryInt64(c echo.Context, name string) (*int64, error) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q", model.ErrValidation, name, s)
	}
	return &n, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", model.ErrValidation, name, s)
	}
	return n, nil
}
