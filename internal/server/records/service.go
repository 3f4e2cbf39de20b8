// Package records maintains the shared, ordered list of name/email entries.
// Every mutation is one transaction on the records file and returns the
// collection as committed.
package records

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophbook/internal/common"
	"github.com/dmitrijs2005/gophbook/internal/logging"
	"github.com/dmitrijs2005/gophbook/internal/server/models"
)

type Service struct {
	repo   Repository
	logger logging.Logger
}

func NewService(repo Repository, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{repo: repo, logger: logger}
}

// List returns the records in file order.
func (s *Service) List(ctx context.Context) ([]models.Record, error) {
	return s.repo.Load(ctx)
}

// Create appends a record. Its index is the collection length before the
// call.
func (s *Service) Create(ctx context.Context, name, email string) ([]models.Record, error) {
	rec, err := newRecord(name, email)
	if err != nil {
		return nil, err
	}
	rec.ID = uuid.NewString()

	out, err := s.repo.Transact(ctx, func(records []models.Record) ([]models.Record, error) {
		assignIDs(records)
		if i := findByEmail(records, rec.Email); i >= 0 {
			return nil, fmt.Errorf("%w: record with email %s exists at index %d", common.ErrorAlreadyExists, rec.Email, i)
		}
		return append(records, rec), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "record created", "id", rec.ID, "index", len(out)-1)
	return out, nil
}

// Update replaces the addressed record in place, keeping its ID. A missing
// record is reported before invalid input, and invalid input before a
// conflicting email.
func (s *Service) Update(ctx context.Context, loc Locator, name, email string) ([]models.Record, error) {
	out, err := s.repo.Transact(ctx, func(records []models.Record) ([]models.Record, error) {
		assignIDs(records)

		i, err := loc.resolve(records)
		if err != nil {
			return nil, err
		}

		rec, err := newRecord(name, email)
		if err != nil {
			return nil, err
		}

		if j := findByEmail(records, rec.Email); j >= 0 && j != i {
			return nil, fmt.Errorf("%w: record with email %s exists at index %d", common.ErrorAlreadyExists, rec.Email, j)
		}

		rec.ID = records[i].ID
		records[i] = rec
		return records, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "record updated", "locator", loc.String())
	return out, nil
}

// Delete removes the addressed record; records after it move down by one.
func (s *Service) Delete(ctx context.Context, loc Locator) ([]models.Record, error) {
	out, err := s.repo.Transact(ctx, func(records []models.Record) ([]models.Record, error) {
		assignIDs(records)

		i, err := loc.resolve(records)
		if err != nil {
			return nil, err
		}
		return slices.Delete(records, i, i+1), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "record deleted", "locator", loc.String())
	return out, nil
}

func newRecord(name, email string) (models.Record, error) {
	rec := models.Record{
		Name:  strings.TrimSpace(name),
		Email: models.CanonicalEmail(email),
	}
	if rec.Name == "" || rec.Email == "" {
		return rec, fmt.Errorf("%w: name and email are required", common.ErrorValidation)
	}
	if err := models.ValidateName(rec.Name); err != nil {
		return rec, err
	}
	if err := models.ValidateEmail(rec.Email); err != nil {
		return rec, err
	}
	return rec, nil
}

// assignIDs gives records written before IDs existed one, so they are
// persisted with the next write.
func assignIDs(records []models.Record) {
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
	}
}

// findByEmail compares canonically; legacy entries may be stored mixed-case.
func findByEmail(records []models.Record, email string) int {
	for i, r := range records {
		if models.CanonicalEmail(r.Email) == email {
			return i
		}
	}
	return -1
}
