package address

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Service manages per-user address books. Each user has at most one default
// address; promoting one clears the others first.
//
// No caller-ownership check is made on any operation.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*AddressDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*AddressDTO, error)
	SetDefault(ctx context.Context, id uuid.UUID) (*AddressDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, userID string) ([]AddressDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*AddressDTO, error)
}

// Transactor runs fn inside a database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the address service.
type ServiceParams struct {
	Repo Repository
	Tx   Transactor
	// AtomicDefault runs clear-then-set inside one transaction. When off the
	// steps run back to back and two concurrent promotions for the same user
	// can both win.
	AtomicDefault bool
	Logger        *logger.Logger
}

type service struct {
	repo   Repository
	tx     Transactor
	atomic bool
	logg   *logger.Logger
}

// NewService builds the address service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if params.AtomicDefault && params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required for atomic defaults")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		atomic: params.AtomicDefault,
		logg:   logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*AddressDTO, error) {
	userID, err := requireUserID(input.UserID)
	if err != nil {
		return nil, err
	}
	for _, f := range []struct{ name, value string }{
		{"address", input.Street},
		{"city", input.City},
		{"country", input.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, pkgerrors.Required(f.name)
		}
	}
	addrType, err := parseType(input.Type)
	if err != nil {
		return nil, err
	}

	addr := &models.Address{
		UserID:        &userID,
		Type:          addrType,
		IsDefault:     input.IsDefault,
		Label:         trimmed(input.Label),
		RecipientName: trimmed(input.RecipientName),
		Phone:         trimmed(input.Phone),
		Street:        strings.TrimSpace(input.Street),
		City:          strings.TrimSpace(input.City),
		State:         trimmed(input.State),
		PostalCode:    trimmed(input.PostalCode),
		Country:       strings.TrimSpace(input.Country),
	}

	var owner *uuid.UUID
	if input.IsDefault {
		owner = &userID
	}
	err = s.run(ctx, owner, func(repo Repository) error {
		if input.IsDefault {
			if err := repo.ClearDefaults(ctx, userID, nil); err != nil {
				return err
			}
		}
		return repo.Create(ctx, addr)
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "create address")
	}
	if input.IsDefault {
		s.logDefault(ctx, userID, addr.ID)
	}
	return FromModel(addr), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*AddressDTO, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	fields, err := updateFields(input)
	if err != nil {
		return nil, err
	}
	promote := input.IsDefault != nil && *input.IsDefault

	var owner *uuid.UUID
	if promote {
		owner = existing.UserID
	}
	err = s.run(ctx, owner, func(repo Repository) error {
		if promote && existing.UserID != nil {
			if err := repo.ClearDefaults(ctx, *existing.UserID, &id); err != nil {
				return err
			}
		}
		return repo.Update(ctx, id, fields)
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "update address")
	}
	if promote && existing.UserID != nil {
		s.logDefault(ctx, *existing.UserID, id)
	}
	return s.Get(ctx, id)
}

func (s *service) SetDefault(ctx context.Context, id uuid.UUID) (*AddressDTO, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address has no owner")
	}
	owner := *existing.UserID

	err = s.run(ctx, &owner, func(repo Repository) error {
		if err := repo.ClearDefaults(ctx, owner, &id); err != nil {
			return err
		}
		return repo.MarkDefault(ctx, id)
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "set default address")
	}
	s.logDefault(ctx, owner, id)
	return s.Get(ctx, id)
}

// Delete removes the address. Deleting the default leaves the user without
// one; no other address is promoted. Unknown ids succeed.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Storage(err, "delete address")
	}
	return nil
}

func (s *service) List(ctx context.Context, rawUserID string) ([]AddressDTO, error) {
	userID, err := requireUserID(rawUserID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Storage(err, "list addresses")
	}
	out := make([]AddressDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*AddressDTO, error) {
	addr, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(addr), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	addr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Storage(err, "load address")
	}
	return addr, nil
}

// run executes steps sequentially, or, when atomic defaults are on and the
// steps move defaultOwner's default, inside one transaction holding the
// owner's address rows.
func (s *service) run(ctx context.Context, defaultOwner *uuid.UUID, steps func(repo Repository) error) error {
	if defaultOwner == nil || !s.atomic {
		return steps(s.repo)
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.LockOwner(ctx, *defaultOwner); err != nil {
			return err
		}
		return steps(repo)
	})
}

func (s *service) logDefault(ctx context.Context, userID, addressID uuid.UUID) {
	ctx = s.logg.WithUserID(ctx, userID.String())
	ctx = s.logg.WithField(ctx, "address_id", addressID.String())
	s.logg.Info(ctx, "address.default_set")
}

func updateFields(input UpdateInput) (map[string]any, error) {
	fields := map[string]any{}
	for _, f := range []struct {
		name   string
		column string
		value  *string
	}{
		{"address", "address", input.Street},
		{"city", "city", input.City},
		{"country", "country", input.Country},
	} {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if v == "" {
			return nil, pkgerrors.Required(f.name)
		}
		fields[f.column] = v
	}
	if input.Type != nil {
		t, err := parseType(*input.Type)
		if err != nil {
			return nil, err
		}
		fields["type"] = t
	}
	optionalColumns := map[string]*string{
		"label":          input.Label,
		"recipient_name": input.RecipientName,
		"phone":          input.Phone,
		"state":          input.State,
		"postal_code":    input.PostalCode,
	}
	for column, value := range optionalColumns {
		if value != nil {
			fields[column] = trimmed(value)
		}
	}
	if input.IsDefault != nil {
		fields["is_default"] = *input.IsDefault
	}
	return fields, nil
}

func requireUserID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, pkgerrors.Required("userId")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Invalid("userId", "must be a valid uuid")
	}
	return id, nil
}

func parseType(raw string) (enums.AddressType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return enums.AddressTypeShipping, nil
	}
	t, err := enums.ParseAddressType(raw)
	if err != nil {
		return "", pkgerrors.Invalid("type", "must be shipping or billing")
	}
	return t, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
