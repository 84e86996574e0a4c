package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"superstore-dashboard/internal/errors"
	"superstore-dashboard/internal/models"
	"superstore-dashboard/internal/observability"
	"superstore-dashboard/internal/services"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// filterFromQuery reads repeated region/category params. A param that is
// present with only empty values selects nothing; an absent param selects
// everything.
func filterFromQuery(q url.Values) models.FilterRequest {
	return models.FilterRequest{
		Regions:    listParam(q, "region"),
		Categories: listParam(q, "category"),
		Start:      q.Get("start"),
		End:        q.Get("end"),
	}
}

func listParam(q url.Values, key string) []string {
	values, ok := q[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// selectionQuery encodes a resolved selection so it can be replayed, e.g. by
// the CSV download link.
func selectionQuery(sel models.Selection) url.Values {
	q := url.Values{}
	setList(q, "region", sel.Regions)
	setList(q, "category", sel.Categories)
	q.Set("start", sel.Start.Format(models.DateLayout))
	q.Set("end", sel.End.Format(models.DateLayout))
	return q
}

func setList(q url.Values, key string, values []string) {
	if len(values) == 0 {
		q.Set(key, "")
		return
	}
	for _, v := range values {
		q.Add(key, v)
	}
}

func pageFromQuery(q url.Values) (offset, limit int, err error) {
	limit = defaultPageSize
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxPageSize {
			return 0, 0, errors.BadRequest("limit must be an integer between 1 and 1000")
		}
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, errors.BadRequest("offset must be a non-negative integer")
		}
	}
	return offset, limit, nil
}

// appError maps service errors onto API error codes.
func appError(err error) error {
	switch {
	case stderrors.Is(err, services.ErrInvalidSelection):
		return errors.ValidationWrap(err, err.Error())
	case stderrors.Is(err, services.ErrNotLoaded):
		return errors.ServiceUnavailableWrap(err, "Dataset is not loaded")
	default:
		return err
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	errors.WriteError(w, logger, appError(err), observability.GetRequestID(r.Context()))
}
