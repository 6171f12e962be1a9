package rpc

// Upstream paths. Token prices come from the indexer API, marks and the pool
// registry from the chain's REST API.
const (
	tokensPath = "/tokens?limit=5000"
	pricesPath = "/carbon/pricing/v1/prices?pagination.limit=1000"
	poolsPath  = "/carbon/perpspool/v1/pools?pagination.limit=1000"
)
