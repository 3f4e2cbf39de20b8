package records

import (
	"fmt"

	"github.com/dmitrijs2005/gophbook/internal/common"
	"github.com/dmitrijs2005/gophbook/internal/server/models"
)

// Locator addresses one record, either by its position in the collection or
// by its stable ID. Positions are resolved against the collection loaded
// inside the transaction, never against a copy the caller saw earlier.
type Locator struct {
	index int
	id    string
	byID  bool
}

func ByIndex(i int) Locator {
	return Locator{index: i}
}

func ByID(id string) Locator {
	return Locator{id: id, byID: true}
}

func (l Locator) String() string {
	if l.byID {
		return "id " + l.id
	}
	return fmt.Sprintf("index %d", l.index)
}

func (l Locator) resolve(records []models.Record) (int, error) {
	if l.byID {
		if l.id != "" {
			for i, r := range records {
				if r.ID == l.id {
					return i, nil
				}
			}
		}
		return -1, fmt.Errorf("%w: no record with %s", common.ErrorNotFound, l)
	}

	if l.index < 0 || l.index >= len(records) {
		return -1, fmt.Errorf("%w: no record at %s", common.ErrorNotFound, l)
	}
	return l.index, nil
}
