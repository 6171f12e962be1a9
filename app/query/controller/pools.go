package controller

import (
	"net/http"

	"github.com/gorilla/mux"
)

// HandlePoolAPR returns the APR of a pool over the window.
// GET /pools/apr/{id}?from=&to=
func (c *Controller) HandlePoolAPR(w http.ResponseWriter, r *http.Request) {
	win, err := c.parseWindow(r, c.today())
	if err != nil {
		c.writeErr(w, r, err)
		return
	}

	res, err := c.App.Pools.APR(r.Context(), mux.Vars(r)["id"], win.From, win.To, win.OpenEnded)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandlePoolPerformance returns the daily PNL decomposition of a pool.
// GET /pools/performance/{id}?from=&to=
func (c *Controller) HandlePoolPerformance(w http.ResponseWriter, r *http.Request) {
	from, to, err := c.parseDayWindow(r)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}

	res, err := c.App.Pools.Performance(r.Context(), mux.Vars(r)["id"], from, to)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandlePoolFees returns the daily fees paid by a pool's vault.
// GET /pools/fees/{id}?from=&to=&denom=
func (c *Controller) HandlePoolFees(w http.ResponseWriter, r *http.Request) {
	from, to, err := c.parseDayWindow(r)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	ctx := r.Context()
	p, err := c.App.Pools.Resolve(ctx, mux.Vars(r)["id"])
	if err != nil {
		c.writeErr(w, r, err)
		return
	}

	rows, err := c.App.Aggregator.Fees(ctx, []string{p.Address}, r.URL.Query().Get("denom"), from, to)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": p.ID, "address": p.Address, "fees": rows})
}

// HandlePoolVolume returns the daily maker and taker volume of a pool's vault.
// GET /pools/volume/{id}?from=&to=&denom=
func (c *Controller) HandlePoolVolume(w http.ResponseWriter, r *http.Request) {
	from, to, err := c.parseDayWindow(r)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	ctx := r.Context()
	p, err := c.App.Pools.Resolve(ctx, mux.Vars(r)["id"])
	if err != nil {
		c.writeErr(w, r, err)
		return
	}

	rows, err := c.App.Aggregator.Volume(ctx, []string{p.Address}, r.URL.Query().Get("denom"), from, to)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": p.ID, "address": p.Address, "volume": rows})
}

// HandlePoolVolume24h returns the notional a pool's vault traded in the last 24 hours.
// GET /pools/24h_volume/{id}
func (c *Controller) HandlePoolVolume24h(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := c.App.Pools.Resolve(ctx, mux.Vars(r)["id"])
	if err != nil {
		c.writeErr(w, r, err)
		return
	}

	n, err := c.App.Aggregator.Volume24h(ctx, p.Address)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           p.ID,
		"address":      p.Address,
		"maker_amount": n.Maker,
		"taker_amount": n.Taker,
		"total_amount": n.Total,
	})
}

// HandlePoolStats summarizes every registered pool.
// GET /pools/stats
func (c *Controller) HandlePoolStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.App.Pools.Stats(r.Context())
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pools": stats})
}
