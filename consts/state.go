package consts

import "time"

// Persisted session keys.
const (
	KeyMessages       = "financegenie.messages"
	KeyRecentSearches = "financegenie.recent_searches"
)

const (
	Role_User      = "user"
	Role_Assistant = "assistant"
)

const (
	MaxRecentSymbols = 5

	MarketCacheTTL       = 60 * time.Second
	MarketMaxRequests    = 40
	MarketRateWindow     = 60 * time.Second
	MarketWarnRatio      = 0.8
	DefaultMarketTimeout = 30 * time.Second
)
