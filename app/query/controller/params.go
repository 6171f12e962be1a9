package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/dem-exchange/insightsx/pkg/utils"
	"github.com/gorilla/mux"
)

// defaultWindow is how far back from is placed when omitted.
const defaultWindow = 30 * 24 * time.Hour

// SortOrder represents the sort direction for queries
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

func parseSort(r *http.Request) (SortOrder, error) {
	switch v := r.URL.Query().Get("sort"); v {
	case "", "desc":
		return SortOrderDesc, nil
	case "asc":
		return SortOrderAsc, nil
	default:
		return "", errs.Validation("invalid sort, must be 'asc' or 'desc'")
	}
}

func (s SortOrder) order() timeseries.Order {
	if s == SortOrderAsc {
		return timeseries.Ascending
	}
	return timeseries.Descending
}

// window is a parsed from/to pair. OpenEnded is set when the caller omitted to.
type window struct {
	From      time.Time
	To        time.Time
	OpenEnded bool
}

func (w window) days() (timeseries.Day, timeseries.Day) {
	return timeseries.DayOf(w.From), timeseries.DayOf(w.To)
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly}

func parseTime(name, v string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errs.Validation("invalid %s %q, expected an ISO 8601 date or date-time", name, v)
}

// parseWindow reads from and to. An omitted to defaults to openTo, an omitted from to
// 30 days before the start of the current UTC day.
func (c *Controller) parseWindow(r *http.Request, openTo time.Time) (window, error) {
	qs := r.URL.Query()
	today := c.today()

	w := window{From: today.Add(-defaultWindow), To: openTo, OpenEnded: true}
	if v := qs.Get("from"); v != "" {
		t, err := parseTime("from", v)
		if err != nil {
			return window{}, err
		}
		w.From = t
	}
	if v := qs.Get("to"); v != "" {
		t, err := parseTime("to", v)
		if err != nil {
			return window{}, err
		}
		w.To = t
		w.OpenEnded = false
	}
	return w, nil
}

// parseDayWindow is parseWindow with to defaulting to today, validated and truncated to days.
func (c *Controller) parseDayWindow(r *http.Request) (timeseries.Day, timeseries.Day, error) {
	w, err := c.parseWindow(r, c.today())
	if err != nil {
		return 0, 0, err
	}
	from, to := w.days()
	if to < from {
		return 0, 0, errs.Validation("from must not be after to")
	}
	return from, to, nil
}

func (c *Controller) today() time.Time {
	return timeseries.DayOf(c.App.Clock.Now()).Time()
}

// addressesVar splits the comma-separated {address} path variable.
func addressesVar(r *http.Request) ([]string, error) {
	addresses := utils.Dedup(utils.SplitCSV(mux.Vars(r)["address"]))
	if len(addresses) == 0 {
		return nil, errs.Validation("missing address")
	}
	return addresses, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "", "false", "0":
		return false, nil
	case "true", "1":
		return true, nil
	default:
		return false, errs.Validation("invalid %s, must be true or false", name)
	}
}
