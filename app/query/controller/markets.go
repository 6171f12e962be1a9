package controller

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandleMarketFunding returns the hourly funding rate of a market over at most the
// last 30 days.
// GET /markets/funding/{market}?from=&to=
func (c *Controller) HandleMarketFunding(w http.ResponseWriter, r *http.Request) {
	win, err := c.parseWindow(r, c.today())
	if err != nil {
		c.writeErr(w, r, err)
		return
	}

	rates, err := c.App.Aggregator.FundingRates(r.Context(), mux.Vars(r)["market"], win.From, win.To)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rates)
}
