package controller

import (
	"net/http"

	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/dem-exchange/insightsx/pkg/pnl"
	"github.com/gorilla/mux"
)

// HandlePositionPnl returns the realized PNL series of an address. Without to the
// series runs up to now and its last bucket carries live unrealized PNL.
// GET /positions/pnl/{address}?from=&to=&market=
func (c *Controller) HandlePositionPnl(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if address == "" {
		c.writeErr(w, r, errs.Validation("missing address"))
		return
	}
	win, err := c.parseWindow(r, c.App.Clock.Now().UTC())
	if err != nil {
		c.writeErr(w, r, err)
		return
	}

	points, err := c.App.Reconciler.RealizedPnl(r.Context(), pnl.Query{
		Address:   address,
		Market:    r.URL.Query().Get("market"),
		From:      win.From,
		To:        win.To,
		OpenEnded: win.OpenEnded,
	})
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": address, "pnl": points})
}

// HandleUnrealizedPnl returns the live unrealized PNL of an address per market.
// GET /positions/upnl/{address}?market=
func (c *Controller) HandleUnrealizedPnl(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if address == "" {
		c.writeErr(w, r, errs.Validation("missing address"))
		return
	}

	u, err := c.App.Reconciler.UnrealizedPnl(r.Context(), address, r.URL.Query().Get("market"))
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
