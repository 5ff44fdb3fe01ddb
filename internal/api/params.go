package api

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/correlator-io/secdash/internal/dataview"
	"github.com/correlator-io/secdash/internal/views"
)

const (
	paramPage     = "page"
	paramPageSize = "page_size"
	paramSort     = "sort"
	paramDir      = "dir"
	paramScope    = "scope"
)

type (
	// listQuery is the raw list/export query string, validated with go-playground/validator.
	// The query tags name the parameter reported in errors.
	listQuery struct {
		Page     int    `query:"page"      validate:"min=1"`
		PageSize int    `query:"page_size" validate:"min=1"`
		Sort     string `query:"sort"      validate:"omitempty,max=64"`
		Dir      string `query:"dir"       validate:"omitempty,oneof=asc desc"`
		Window   string `query:"window"`
		Search   string `query:"q"`
		Scope    string `query:"scope"     validate:"omitempty,oneof=filtered all"`
	}

	// paramError represents a parameter validation error.
	paramError struct {
		param string
		msg   string
	}
)

func (e *paramError) Error() string {
	return "Invalid parameter '" + e.param + "': " + e.msg
}

// newValidator returns a validator that reports query parameter names instead of Go field names.
func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("query"), ",")
		if name == "" || name == "-" {
			return field.Name
		}

		return name
	})

	return validate
}

// parseListQuery reads and validates the shared list parameters. Integers that fail to parse
// and values that fail validation become *paramError.
func (s *Server) parseListQuery(values url.Values) (listQuery, error) {
	query := listQuery{
		Page:     1,
		PageSize: s.config.DefaultPageSize,
		Sort:     strings.TrimSpace(values.Get(paramSort)),
		Dir:      strings.ToLower(strings.TrimSpace(values.Get(paramDir))),
		Window:   strings.ToLower(strings.TrimSpace(values.Get(dataview.DimWindow))),
		Search:   strings.TrimSpace(values.Get(dataview.DimSearch)),
		Scope:    strings.ToLower(strings.TrimSpace(values.Get(paramScope))),
	}

	var err error

	if query.Page, err = intParam(values, paramPage, query.Page); err != nil {
		return listQuery{}, err
	}

	if query.PageSize, err = intParam(values, paramPageSize, query.PageSize); err != nil {
		return listQuery{}, err
	}

	if err := s.validate.Struct(query); err != nil {
		return listQuery{}, toParamError(err)
	}

	if err := s.validate.Var(query.PageSize, "max="+strconv.Itoa(s.config.MaxPageSize)); err != nil {
		return listQuery{}, &paramError{
			param: paramPageSize,
			msg:   fmt.Sprintf("must be between 1 and %d", s.config.MaxPageSize),
		}
	}

	windows := append([]string{dataview.SentinelAll}, dataview.WindowNames()...)

	if err := s.validate.Var(query.Window, "omitempty,oneof="+strings.Join(windows, " ")); err != nil {
		return listQuery{}, &paramError{
			param: dataview.DimWindow,
			msg:   "must be one of " + strings.Join(windows, ", "),
		}
	}

	if err := s.validate.Var(query.Search, "max="+strconv.Itoa(s.config.MaxSearchLength)); err != nil {
		return listQuery{}, &paramError{
			param: dataview.DimSearch,
			msg:   fmt.Sprintf("must be at most %d characters", s.config.MaxSearchLength),
		}
	}

	return query, nil
}

// parseState turns a request into engine state for view. Filter dimensions are taken from the
// view's schema, so a parameter the page does not filter on is ignored. An unknown sort column
// is rejected rather than silently ignored.
func parseState[T any](s *Server, r *http.Request, view *views.View[T]) (dataview.State, listQuery, error) {
	values := r.URL.Query()

	query, err := s.parseListQuery(values)
	if err != nil {
		return dataview.State{}, listQuery{}, err
	}

	schema := view.Schema()

	filters := dataview.Filters{}
	for dimension := range schema.Dimensions {
		if value := strings.TrimSpace(values.Get(dimension)); value != "" {
			filters[dimension] = value
		}
	}

	if query.Search != "" {
		filters[dataview.DimSearch] = query.Search
	}

	if query.Window != "" {
		filters[dataview.DimWindow] = query.Window
	}

	direction, err := dataview.ParseDirection(query.Dir)
	if err != nil {
		return dataview.State{}, listQuery{}, &paramError{param: paramDir, msg: "must be asc or desc"}
	}

	sort := dataview.Sort{Column: query.Sort, Direction: direction}
	if err := dataview.ValidateSort(sort, schema); err != nil {
		return dataview.State{}, listQuery{}, &paramError{
			param: paramSort,
			msg:   "must be one of " + strings.Join(slices.Sorted(maps.Keys(schema.Columns)), ", "),
		}
	}

	state := dataview.State{
		Filters: filters,
		Sort:    view.ResolveSort(sort),
		Page:    dataview.Page{Index: query.Page, Size: query.PageSize},
		Now:     s.clock(),
	}

	return state, query, nil
}

func intParam(values url.Values, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{param: name, msg: "must be a valid integer"}
	}

	return n, nil
}

// toParamError reports the first failed field of a validator error.
func toParamError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return &paramError{param: "query", msg: err.Error()}
	}

	field := validationErrors[0]

	var msg string

	switch field.Tag() {
	case "min":
		msg = "must be at least " + field.Param()
	case "max":
		msg = "must be at most " + field.Param()
	case "oneof":
		msg = "must be one of " + strings.ReplaceAll(field.Param(), " ", ", ")
	default:
		msg = "is invalid"
	}

	return &paramError{param: field.Field(), msg: msg}
}

// activeFilters returns the filters that actually constrain the result, for echoing back.
func activeFilters(filters dataview.Filters) map[string]string {
	active := make(map[string]string, len(filters))

	for dimension := range filters {
		if value, ok := filters.Active(dimension); ok {
			active[dimension] = value
		}
	}

	return active
}
