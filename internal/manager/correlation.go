package manager

import "strings"

// CorrelationFunc decides whether two pairs move together closely
// enough to count against the same exposure bucket.
type CorrelationFunc func(a, b string) bool

// Fixed groups of assets that historically track each other. Sharing a
// base asset always counts as correlated.
var correlationGroups = [][]string{
	{"BTC", "ETH"},
	{"SOL", "ADA", "AVAX"},
	{"DOT", "ATOM", "NEAR"},
}

// DefaultCorrelation is the built-in policy: same base asset, or both
// bases in one group.
func DefaultCorrelation(a, b string) bool {
	ba, bb := baseAsset(a), baseAsset(b)
	if ba == "" || bb == "" {
		return false
	}
	if ba == bb {
		return true
	}
	for _, group := range correlationGroups {
		if containsAsset(group, ba) && containsAsset(group, bb) {
			return true
		}
	}
	return false
}

func baseAsset(pair string) string {
	pair = strings.ToUpper(pair)
	for _, sep := range []string{"-", "/", "_"} {
		if i := strings.Index(pair, sep); i > 0 {
			return pair[:i]
		}
	}
	return pair
}

func containsAsset(group []string, asset string) bool {
	for _, g := range group {
		if g == asset {
			return true
		}
	}
	return false
}

// CorrelationRatio is the share of open positions correlated with the
// candidate pair.
func (m *Manager) CorrelationRatio(pair string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.correlationRatioLocked(pair)
}

func (m *Manager) correlationRatioLocked(pair string) float64 {
	if len(m.positions) == 0 {
		return 0
	}
	var correlated int
	for _, p := range m.positions {
		if m.correlated(pair, p.Symbol) {
			correlated++
		}
	}
	return float64(correlated) / float64(len(m.positions))
}
