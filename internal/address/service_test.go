package address

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fixture struct {
	svc    Service
	repo   Repository
	client *db.Client
}

func newFixture(t *testing.T, atomic bool) fixture {
	t.Helper()
	client := dbtest.Client(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(ServiceParams{Repo: repo, Tx: client, AtomicDefault: atomic})
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, client: client}
}

func createInput(userID uuid.UUID, isDefault bool) CreateInput {
	return CreateInput{
		UserID:    userID.String(),
		IsDefault: isDefault,
		Street:    "12 Rue des Palmiers",
		City:      "Douala",
		Country:   "CM",
	}
}

func ptr[T any](v T) *T { return &v }

func countDefaults(t *testing.T, client *db.Client, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Count(&n).Error)
	return n
}

func TestCreateDefaultDemotesPreviousDefault(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	user := uuid.New()

	d1, err := f.svc.Create(ctx, createInput(user, true))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, createInput(user, false))
	require.NoError(t, err)
	d2, err := f.svc.Create(ctx, createInput(user, true))
	require.NoError(t, err)

	list, err := f.svc.List(ctx, user.String())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, d2.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)

	for _, a := range list {
		if a.ID == d1.ID {
			assert.False(t, a.IsDefault)
		}
	}
	assert.EqualValues(t, 1, countDefaults(t, f.client, user))
}

func TestCreateDoesNotTouchOtherUsers(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	_, err := f.svc.Create(ctx, createInput(alice, true))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, createInput(bob, true))
	require.NoError(t, err)

	assert.EqualValues(t, 1, countDefaults(t, f.client, alice))
	assert.EqualValues(t, 1, countDefaults(t, f.client, bob))
}

func TestCreateValidationNamesField(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	user := uuid.New()

	cases := map[string]CreateInput{
		"userId":  {Street: "x", City: "y", Country: "z"},
		"address": {UserID: user.String(), City: "y", Country: "z"},
		"city":    {UserID: user.String(), Street: "x", City: "  ", Country: "z"},
		"country": {UserID: user.String(), Street: "x", City: "y"},
	}
	for field, input := range cases {
		_, err := f.svc.Create(ctx, input)
		require.Error(t, err, field)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		assert.Equal(t, field+" is required", typed.Message())
	}

	_, err := f.svc.Create(ctx, CreateInput{UserID: "not-a-uuid", Street: "x", City: "y", Country: "z"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	in := createInput(user, false)
	in.Type = "warehouse"
	_, err = f.svc.Create(ctx, in)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetDefaultSequenceLeavesOnlyLast(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	user := uuid.New()

	a, err := f.svc.Create(ctx, createInput(user, false))
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, createInput(user, false))
	require.NoError(t, err)

	_, err = f.svc.SetDefault(ctx, a.ID)
	require.NoError(t, err)
	got, err := f.svc.SetDefault(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)

	reloadedA, err := f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, reloadedA.IsDefault)
	assert.EqualValues(t, 1, countDefaults(t, f.client, user))
}

func TestSetDefaultNotFound(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.SetDefault(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	orphan := &models.Address{Street: "x", City: "y", Country: "z"}
	require.NoError(t, f.repo.Create(ctx, orphan))
	_, err = f.svc.SetDefault(ctx, orphan.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdatePromotesUsingStoredOwner(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	user := uuid.New()

	current, err := f.svc.Create(ctx, createInput(user, true))
	require.NoError(t, err)
	other, err := f.svc.Create(ctx, createInput(user, false))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, other.ID, UpdateInput{IsDefault: ptr(true), City: ptr("Yaoundé"), Label: ptr("Office")})
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)
	assert.Equal(t, "Yaoundé", updated.City)
	require.NotNil(t, updated.Label)
	assert.Equal(t, "Office", *updated.Label)

	prev, err := f.svc.Get(ctx, current.ID)
	require.NoError(t, err)
	assert.False(t, prev.IsDefault)
	assert.EqualValues(t, 1, countDefaults(t, f.client, user))
}

func TestUpdateErrors(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, uuid.New(), UpdateInput{City: ptr("x")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	addr, err := f.svc.Create(ctx, createInput(uuid.New(), false))
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, addr.ID, UpdateInput{Country: ptr("  ")})
	require.Error(t, err)
	assert.Equal(t, "country is required", pkgerrors.As(err).Message())
}

func TestUpdateClearsOptionalField(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	in := createInput(uuid.New(), false)
	in.Phone = ptr("+237 600")
	addr, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, addr.Phone)

	updated, err := f.svc.Update(ctx, addr.ID, UpdateInput{Phone: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.Phone)
}

func TestDeleteDefaultLeavesNoDefault(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	user := uuid.New()

	def, err := f.svc.Create(ctx, createInput(user, true))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, createInput(user, false))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, def.ID))

	list, err := f.svc.List(ctx, user.String())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsDefault)
	assert.Zero(t, countDefaults(t, f.client, user))
}

func TestDeleteUnknownSucceeds(t *testing.T) {
	f := newFixture(t, false)
	assert.NoError(t, f.svc.Delete(context.Background(), uuid.New()))
}

func TestListRequiresUserID(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.List(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "userId is required", pkgerrors.As(err).Message())
}

func TestAtMostOneDefaultAcrossRandomOperations(t *testing.T) {
	for _, atomic := range []bool{false, true} {
		f := newFixture(t, atomic)
		ctx := context.Background()
		user := uuid.New()
		rng := rand.New(rand.NewSource(42))
		var ids []uuid.UUID

		for step := 0; step < 60; step++ {
			switch op := rng.Intn(4); {
			case op == 0 || len(ids) == 0:
				a, err := f.svc.Create(ctx, createInput(user, rng.Intn(2) == 0))
				require.NoError(t, err)
				ids = append(ids, a.ID)
			case op == 1:
				_, err := f.svc.SetDefault(ctx, ids[rng.Intn(len(ids))])
				require.NoError(t, err)
			case op == 2:
				_, err := f.svc.Update(ctx, ids[rng.Intn(len(ids))], UpdateInput{IsDefault: ptr(rng.Intn(2) == 0)})
				require.NoError(t, err)
			default:
				i := rng.Intn(len(ids))
				require.NoError(t, f.svc.Delete(ctx, ids[i]))
				ids = append(ids[:i], ids[i+1:]...)
			}
			require.LessOrEqual(t, countDefaults(t, f.client, user), int64(1), "step %d atomic=%v", step, atomic)
		}
	}
}

// failingMark clears defaults normally and then fails to mark the new one,
// exposing whether the clear step was rolled back.
type failingMark struct {
	Repository
}

func (r failingMark) WithTx(tx *gorm.DB) Repository {
	return failingMark{Repository: r.Repository.WithTx(tx)}
}

func (failingMark) MarkDefault(context.Context, uuid.UUID) error {
	return errors.New("connection lost")
}

func TestSetDefaultAtomicityFlag(t *testing.T) {
	for _, tc := range []struct {
		atomic       bool
		wantDefaults int64
	}{
		{atomic: true, wantDefaults: 1},
		{atomic: false, wantDefaults: 0},
	} {
		f := newFixture(t, tc.atomic)
		ctx := context.Background()
		user := uuid.New()
		_, err := f.svc.Create(ctx, createInput(user, true))
		require.NoError(t, err)
		other, err := f.svc.Create(ctx, createInput(user, false))
		require.NoError(t, err)

		broken, err := NewService(ServiceParams{Repo: failingMark{f.repo}, Tx: f.client, AtomicDefault: tc.atomic})
		require.NoError(t, err)

		_, err = broken.SetDefault(ctx, other.ID)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorage))
		assert.Equal(t, tc.wantDefaults, countDefaults(t, f.client, user), "atomic=%v", tc.atomic)
	}
}

// interleaving runs during once, right after the first ClearDefaults and
// before the default is marked.
type interleaving struct {
	Repository
	fired  *atomic.Bool
	during func()
}

func (r interleaving) WithTx(tx *gorm.DB) Repository {
	return interleaving{Repository: r.Repository.WithTx(tx), fired: r.fired, during: r.during}
}

func (r interleaving) ClearDefaults(ctx context.Context, userID uuid.UUID, except *uuid.UUID) error {
	err := r.Repository.ClearDefaults(ctx, userID, except)
	if r.fired.CompareAndSwap(false, true) {
		r.during()
	}
	return err
}

func TestConcurrentSetDefaultRace(t *testing.T) {
	for _, tc := range []struct {
		atomic       bool
		wantDefaults int64
	}{
		{atomic: false, wantDefaults: 2},
		{atomic: true, wantDefaults: 1},
	} {
		f := newFixture(t, tc.atomic)
		ctx := context.Background()
		user := uuid.New()
		a, err := f.svc.Create(ctx, createInput(user, false))
		require.NoError(t, err)
		b, err := f.svc.Create(ctx, createInput(user, false))
		require.NoError(t, err)

		hooked := &interleaving{Repository: f.repo, fired: &atomic.Bool{}}
		svc, err := NewService(ServiceParams{Repo: hooked, Tx: f.client, AtomicDefault: tc.atomic})
		require.NoError(t, err)

		// The second swap starts while the first sits between clear and mark.
		// Sequential mode lets it finish inside that window; atomic mode makes
		// it wait for the first transaction to commit.
		second := make(chan error, 1)
		var secondDone bool
		var secondErr error
		hooked.during = func() {
			go func() {
				_, err := svc.SetDefault(ctx, b.ID)
				second <- err
			}()
			select {
			case secondErr = <-second:
				secondDone = true
			case <-time.After(300 * time.Millisecond):
			}
		}

		_, err = svc.SetDefault(ctx, a.ID)
		require.NoError(t, err)
		if !secondDone {
			secondErr = <-second
		}
		require.NoError(t, secondErr)

		assert.Equal(t, tc.wantDefaults, countDefaults(t, f.client, user), "atomic=%v", tc.atomic)
		if tc.atomic {
			got, err := f.svc.Get(ctx, b.ID)
			require.NoError(t, err)
			assert.True(t, got.IsDefault, "the later swap wins")
		}
	}
}

func TestNewServiceRequiresTxForAtomic(t *testing.T) {
	_, err := NewService(ServiceParams{Repo: NewRepository(nil), AtomicDefault: true})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{})
	assert.Error(t, err)
}
