package records

import (
	"context"

	"github.com/dmitrijs2005/gophbook/internal/jsonstore"
	"github.com/dmitrijs2005/gophbook/internal/server/models"
)

type Repository interface {
	Load(ctx context.Context) ([]models.Record, error)
	Transact(ctx context.Context, fn jsonstore.Mutator[models.Record]) ([]models.Record, error)
}
