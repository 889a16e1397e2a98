package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/crmsync/pkg/model"
)

func sample() []model.Opportunity {
	return []model.Opportunity{
		{ID: "1", Stage: model.StageNegotiation, Value: 50000},
		{ID: "2", Stage: model.StageProposal, Value: 25000},
		{ID: "3", Stage: model.StageProposal, Value: 5000},
		{ID: "4", Stage: "won", Value: 100},
		{ID: "5", Stage: model.StageLead, Value: 0},
	}
}

func TestGroupByStageCoversEveryItemInOrder(t *testing.T) {
	opps := sample()
	groups := GroupByStage(opps, OpportunityStage)

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	assert.Equal(t, len(opps), total)

	proposal := groups[model.StageProposal]
	require.Len(t, proposal, 2)
	assert.Equal(t, "2", proposal[0].ID)
	assert.Equal(t, "3", proposal[1].ID)
	assert.Len(t, groups["won"], 1)
	assert.Empty(t, groups[model.StageClosed])
}

func TestGroupContacts(t *testing.T) {
	contacts := []model.Contact{{ID: "a", Stage: model.StageQualified}, {ID: "b", Stage: model.StageLead}, {ID: "c", Stage: model.StageQualified}}
	groups := GroupByStage(contacts, ContactStage)
	assert.Equal(t, []model.Contact{contacts[0], contacts[2]}, groups[model.StageQualified])
	assert.Equal(t, 2, CountByStage(contacts, ContactStage)[model.StageQualified])
}

func TestSums(t *testing.T) {
	opps := sample()
	assert.Equal(t, 30000.0, SumByStage(opps, model.StageProposal))
	assert.Equal(t, 0.0, SumByStage(opps, model.StageClosed))
	assert.Equal(t, 80100.0, TotalValue(opps))
}

func TestPercentageOfTotal(t *testing.T) {
	assert.Equal(t, 0.0, PercentageOfTotal(0, 0))
	assert.Equal(t, 0.0, PercentageOfTotal(5, 0))
	assert.Equal(t, 50.0, PercentageOfTotal(1, 2))
	assert.Equal(t, 100.0, PercentageOfTotal(4, 4))
}

func TestSummarize(t *testing.T) {
	summary := Summarize(sample())
	require.Len(t, summary, len(model.Stages)+1)

	for i, s := range model.Stages {
		assert.Equal(t, s, summary[i].Stage)
	}
	proposal := summary[2]
	assert.Equal(t, 2, proposal.Count)
	assert.Equal(t, 30000.0, proposal.Value)
	assert.Equal(t, 40.0, proposal.Percent)

	assert.Equal(t, model.Stage("won"), summary[len(summary)-1].Stage)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	require.Len(t, summary, len(model.Stages))
	for _, s := range summary {
		assert.Zero(t, s.Count)
		assert.Zero(t, s.Percent)
	}
}
