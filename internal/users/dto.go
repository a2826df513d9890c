package users

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CreateUserDTO holds the data required by the repo to persist a new user.
// Account registration lives outside this service; the repo only needs to
// create users for seeding and tests.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Name         string
	Role         enums.UserRole
}

// ToModel converts the DTO into a persistable user.
func (d CreateUserDTO) ToModel() *models.User {
	role := d.Role
	if !role.IsValid() {
		role = enums.UserRoleCustomer
	}
	return &models.User{
		Email:        strings.TrimSpace(d.Email),
		PasswordHash: d.PasswordHash,
		Name:         strings.TrimSpace(d.Name),
		Role:         role,
	}
}
