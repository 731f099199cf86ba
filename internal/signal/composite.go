package signal

import (
	"fmt"

	"trade_engine/internal/models"
)

// evalComposite combines sub-strategy signals with the configured
// combinator: AND requires unanimity, OR takes the majority side,
// WEIGHTED sums per-leg weights. Ties produce no signal.
func (g *Generator) evalComposite(st models.Strategy, candles []models.Candle) (models.Side, string) {
	p := st.Params
	if len(p.SubStrategies) == 0 {
		return models.SideNone, "composite strategy has no sub-strategies"
	}

	sides := make([]models.Side, 0, len(p.SubStrategies))
	for _, sub := range p.SubStrategies {
		legSig := g.Generate(models.Strategy{
			ID:     st.ID,
			Type:   sub.Type,
			Params: sub.Params,
			Pair:   st.Pair,
		}, candles)
		sides = append(sides, legSig.Side)
	}

	switch p.Combine {
	case models.CombineAND:
		first := sides[0]
		if first == models.SideNone {
			return models.SideNone, "AND: first leg produced no signal"
		}
		for _, s := range sides[1:] {
			if s != first {
				return models.SideNone, "AND: legs disagree"
			}
		}
		return first, fmt.Sprintf("AND: all %d legs agree on %s", len(sides), first)

	case models.CombineOR:
		var buys, sells int
		for _, s := range sides {
			switch s {
			case models.SideBuy:
				buys++
			case models.SideSell:
				sells++
			}
		}
		if buys > sells {
			return models.SideBuy, fmt.Sprintf("OR: %d BUY vs %d SELL", buys, sells)
		}
		if sells > buys {
			return models.SideSell, fmt.Sprintf("OR: %d SELL vs %d BUY", sells, buys)
		}
		return models.SideNone, "OR: tie or no votes"

	case models.CombineWeighted:
		var buyW, sellW float64
		for i, s := range sides {
			w := p.SubStrategies[i].Weight
			switch s {
			case models.SideBuy:
				buyW += w
			case models.SideSell:
				sellW += w
			}
		}
		if buyW > sellW {
			return models.SideBuy, fmt.Sprintf("WEIGHTED: buy %.2f vs sell %.2f", buyW, sellW)
		}
		if sellW > buyW {
			return models.SideSell, fmt.Sprintf("WEIGHTED: sell %.2f vs buy %.2f", sellW, buyW)
		}
		return models.SideNone, "WEIGHTED: tie"

	default:
		return models.SideNone, fmt.Sprintf("unknown combine mode %q", p.Combine)
	}
}
