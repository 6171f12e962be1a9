package controller

import (
	"net/http"

	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/dem-exchange/insightsx/pkg/fees"
	"github.com/gorilla/mux"
)

// HandleTradeVolume returns the daily maker and taker volume of the addresses.
// GET /trades/volume/{address}?from=&to=&denom=
func (c *Controller) HandleTradeVolume(w http.ResponseWriter, r *http.Request) {
	addresses, err := addressesVar(r)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	from, to, err := c.parseDayWindow(r)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}

	rows, err := c.App.Aggregator.Volume(r.Context(), addresses, r.URL.Query().Get("denom"), from, to)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"volume": rows})
}

// HandleTradeFees returns the daily fees paid by the addresses.
// GET /trades/fees/{address}?from=&to=&denom=
func (c *Controller) HandleTradeFees(w http.ResponseWriter, r *http.Request) {
	addresses, err := addressesVar(r)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	from, to, err := c.parseDayWindow(r)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}

	rows, err := c.App.Aggregator.Fees(r.Context(), addresses, r.URL.Query().Get("denom"), from, to)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fees": rows})
}

// HandleFunding returns the funding payments of an address.
// GET /trades/funding/{address}?from=&to=&market=&by_market=<true|false>
func (c *Controller) HandleFunding(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if address == "" {
		c.writeErr(w, r, errs.Validation("missing address"))
		return
	}
	win, err := c.parseWindow(r, c.today())
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	byMarket, err := boolParam(r, "by_market")
	if err != nil {
		c.writeErr(w, r, err)
		return
	}

	payments, err := c.App.Aggregator.Funding(r.Context(), fees.FundingQuery{
		Address:  address,
		Market:   r.URL.Query().Get("market"),
		From:     win.From,
		To:       win.To,
		ByMarket: byMarket,
	})
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": address, "funding": payments})
}
