// Package pipeline aggregates already-fetched contacts and opportunities by
// sales stage.
package pipeline

import "github.com/harrisonrobin/crmsync/pkg/model"

// GroupByStage partitions items by stage. Each item lands in exactly one
// group and keeps its relative order.
func GroupByStage[T any](items []T, stageOf func(T) model.Stage) map[model.Stage][]T {
	groups := make(map[model.Stage][]T)
	for _, item := range items {
		s := stageOf(item)
		groups[s] = append(groups[s], item)
	}
	return groups
}

func OpportunityStage(o model.Opportunity) model.Stage { return o.Stage }

func ContactStage(c model.Contact) model.Stage { return c.Stage }

// TotalValue sums the value of every opportunity.
func TotalValue(opps []model.Opportunity) float64 {
	var total float64
	for _, o := range opps {
		total += o.Value
	}
	return total
}

// SumByStage totals the value of the opportunities in one stage.
func SumByStage(opps []model.Opportunity, stage model.Stage) float64 {
	var total float64
	for _, o := range opps {
		if o.Stage == stage {
			total += o.Value
		}
	}
	return total
}

// PercentageOfTotal is count/total*100, and 0 when total is 0.
func PercentageOfTotal(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

type StageSummary struct {
	Stage   model.Stage
	Count   int
	Value   float64
	Percent float64
}

// Summarize reports every pipeline stage in order, followed by any stage
// values outside the pipeline in the order they first appear.
func Summarize(opps []model.Opportunity) []StageSummary {
	groups := GroupByStage(opps, OpportunityStage)
	order := append([]model.Stage(nil), model.Stages...)
	known := make(map[model.Stage]bool, len(order))
	for _, s := range order {
		known[s] = true
	}
	for _, o := range opps {
		if !known[o.Stage] {
			known[o.Stage] = true
			order = append(order, o.Stage)
		}
	}

	out := make([]StageSummary, 0, len(order))
	for _, s := range order {
		group := groups[s]
		out = append(out, StageSummary{
			Stage:   s,
			Count:   len(group),
			Value:   TotalValue(group),
			Percent: PercentageOfTotal(len(group), len(opps)),
		})
	}
	return out
}

// CountByStage counts items per stage.
func CountByStage[T any](items []T, stageOf func(T) model.Stage) map[model.Stage]int {
	counts := make(map[model.Stage]int)
	for _, item := range items {
		counts[stageOf(item)]++
	}
	return counts
}
