package normalize

import (
	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/store"
)

var OpportunityFields = withSystem("title", "value", "stage", "probability", "assigned_to", "contact")

// Opportunity converts an opportunity to its store record. Value is never
// negative and probability is kept within 0..100.
func Opportunity(o model.Opportunity) store.Record {
	r := store.Record{
		store.FieldName: o.Title,
		"title":         o.Title,
		"value":         money(o.Value),
		"stage":         orDefault(string(o.Stage), string(model.StageLead)),
		"probability":   percent(o.Probability),
		"assigned_to":   o.AssignedTo,
	}
	putID(r, o.ID)
	putOptional(r, "contact", o.ContactID)
	putTags(r, o.Tags)
	putOptional(r, store.FieldOwner, o.Owner)
	return r
}

func OpportunityFromRecord(r store.Record) model.Opportunity {
	title := r.String("title")
	if title == "" {
		title = r.String(store.FieldName)
	}
	return model.Opportunity{
		ID:          r.ID(),
		Title:       title,
		Value:       money(Float(r["value"])),
		Stage:       model.Stage(orDefault(r.String("stage"), string(model.StageLead))),
		Probability: percent(Int(r["probability"])),
		AssignedTo:  r.String("assigned_to"),
		ContactID:   ref(r, "contact"),
		Tags:        SplitTags(r.String(store.FieldTags)),
		Owner:       ref(r, store.FieldOwner),
		Audit:       audit(r),
	}
}

func money(v float64) float64 {
	v = Float(v)
	if v < 0 {
		return 0
	}
	return v
}

func percent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
