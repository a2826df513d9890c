// Package customers links an order to a Customer record by email and, when a
// registered account shares that email, to the User as well.
package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CustomerStore is the persistence the resolver needs.
type CustomerStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
}

// UserLookup finds registered accounts by email.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// ResolveInput is the contact data submitted with an order.
type ResolveInput struct {
	Email  string
	Name   string
	Phone  string
	UserID *uuid.UUID
}

// Resolution is the identity attached to the order. CustomerCreated and
// UserLinked report the side effects of resolving.
type Resolution struct {
	CustomerID      *uuid.UUID
	UserID          *uuid.UUID
	CustomerCreated bool
	UserLinked      bool
}

// Resolver maps order contact details onto Customer and User records.
type Resolver struct {
	customers CustomerStore
	users     UserLookup
	logg      *logger.Logger
}

// NewResolver wires the resolver.
func NewResolver(customers CustomerStore, users UserLookup, logg *logger.Logger) (*Resolver, error) {
	if customers == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{customers: customers, users: users, logg: logg}, nil
}

// Resolve finds or creates the Customer for the email and adopts a matching
// User when the caller did not name one. An empty email skips resolution and
// keeps the explicit user id. Users are never created here.
func (r *Resolver) Resolve(ctx context.Context, input ResolveInput) (Resolution, error) {
	res := Resolution{UserID: input.UserID}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return res, nil
	}

	customer, err := r.customers.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case db.IsNotFound(err):
		first, last := SplitName(input.Name)
		customer = &models.Customer{
			Email:     email,
			FirstName: first,
			LastName:  last,
			Phone:     optional(input.Phone),
		}
		if err := r.customers.Create(ctx, customer); err != nil {
			if db.IsUniqueViolation(err, "") {
				r.logg.Warn(r.logg.WithField(ctx, "email", email), "customer.create_race")
			}
			return Resolution{}, pkgerrors.Storage(err, "create customer")
		}
		res.CustomerCreated = true
	default:
		return Resolution{}, pkgerrors.Storage(err, "lookup customer")
	}
	res.CustomerID = &customer.ID

	user, err := r.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if res.UserID == nil {
			res.UserID = &user.ID
			res.UserLinked = true
		}
	case db.IsNotFound(err):
	default:
		return Resolution{}, pkgerrors.Storage(err, "lookup user")
	}

	return res, nil
}

// SplitName splits at the first space: "Ada King Lovelace" gives
// ("Ada", "King Lovelace"); a single word leaves the last name empty.
func SplitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	first, last, _ := strings.Cut(full, " ")
	return first, strings.TrimSpace(last)
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
