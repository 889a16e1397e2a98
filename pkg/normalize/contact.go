package normalize

import (
	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/store"
)

// ContactFields is every field fetched for a contact.
var ContactFields = withSystem("first_name", "last_name", "email", "phone", "company", "position", "stage")

// Contact converts a contact to its store record.
func Contact(c model.Contact) store.Record {
	r := store.Record{
		store.FieldName: c.Name(),
		"first_name":    c.FirstName,
		"last_name":     c.LastName,
		"email":         c.Email,
		"phone":         c.Phone,
		"company":       c.Company,
		"position":      c.Position,
		"stage":         orDefault(string(c.Stage), string(model.StageLead)),
	}
	putID(r, c.ID)
	putTags(r, c.Tags)
	putOptional(r, store.FieldOwner, c.Owner)
	return r
}

// ContactFromRecord fills a contact from a store record, defaulting every
// absent field.
func ContactFromRecord(r store.Record) model.Contact {
	return model.Contact{
		ID:        r.ID(),
		FirstName: r.String("first_name"),
		LastName:  r.String("last_name"),
		Email:     r.String("email"),
		Phone:     r.String("phone"),
		Company:   r.String("company"),
		Position:  r.String("position"),
		Stage:     model.Stage(orDefault(r.String("stage"), string(model.StageLead))),
		Tags:      SplitTags(r.String(store.FieldTags)),
		Owner:     ref(r, store.FieldOwner),
		Audit:     audit(r),
	}
}
