package users

import (
	"context"

	"github.com/dmitrijs2005/gophbook/internal/jsonstore"
	"github.com/dmitrijs2005/gophbook/internal/server/models"
)

// Repository is the users collection. *jsonstore.Store[models.User]
// satisfies it.
type Repository interface {
	Load(ctx context.Context) ([]models.User, error)
	Transact(ctx context.Context, fn jsonstore.Mutator[models.User]) ([]models.User, error)
}
