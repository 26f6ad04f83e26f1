package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
)

const (
	orderingParam        = "ordering"
	limitParam           = "limit"
	headerIdempotencyKey = "Idempotency-Key"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// queryInt returns the integer query param, or 0 when it is missing or malformed.
func queryInt(ctx echo.Context, name string) int {
	i, err := strconv.Atoi(ctx.QueryParam(name))
	if err != nil {
		return 0
	}
	return i
}

// queryBool returns the boolean query param, or nil when it is missing or malformed.
func queryBool(ctx echo.Context, name string) *bool {
	b, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &b
}
