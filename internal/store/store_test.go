package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/edufund/internal/logging"
	"github.com/AlexZinkM/edufund/internal/model"
	"github.com/AlexZinkM/edufund/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "edufund.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createUser(t *testing.T, s *store.Store, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, Name: "Test", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func createProject(t *testing.T, s *store.Store, owner string) *model.Project {
	t.Helper()
	p := &model.Project{OwnerID: owner, Title: "Soil sensors", PayoutAddress: "addr_test1xyz", GoalLovelace: 500_000_000}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func TestUsers(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	u := createUser(t, s, " Ada@Example.org ")
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.org", u.Email)
	assert.Equal(t, model.RoleDonor, u.Role)

	got, err := s.GetUserByEmail(ctx, "ADA@example.org")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	byID, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)

	err = s.CreateUser(ctx, &model.User{Email: "ada@example.org", PasswordHash: "x"})
	require.ErrorIs(t, err, store.ErrEmailTaken)

	_, err = s.GetUserByEmail(ctx, "nobody@example.org")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestProjects(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "student@example.org")

	p := createProject(t, s, owner.ID)
	assert.Equal(t, "500.000000", p.Goal)
	assert.Equal(t, "0.000000", p.Raised)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, uint64(500_000_000), got.GoalLovelace)

	got.Title = "Soil sensors v2"
	got.GoalLovelace = 750_000_000
	require.NoError(t, s.UpdateProject(ctx, got))
	assert.Equal(t, "750.000000", got.Goal)

	again, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Soil sensors v2", again.Title)

	other := createUser(t, s, "other@example.org")
	createProject(t, s, other.ID)

	all, err := s.ListProjects(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := s.ListProjects(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, p.ID, mine[0].ID)

	require.NoError(t, s.DeleteProject(ctx, p.ID))
	_, err = s.GetProject(ctx, p.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.DeleteProject(ctx, p.ID), store.ErrNotFound)
	require.ErrorIs(t, s.UpdateProject(ctx, p), store.ErrNotFound)

	again.GoalLovelace = 1 << 63
	require.ErrorIs(t, s.UpdateProject(ctx, again), store.ErrAmountRange)
	err = s.CreateProject(ctx, &model.Project{OwnerID: owner.ID, Title: "x", PayoutAddress: "y", GoalLovelace: 1 << 63})
	require.ErrorIs(t, err, store.ErrAmountRange)

	err = s.CreateProject(ctx, &model.Project{OwnerID: "missing", Title: "x", PayoutAddress: "y", GoalLovelace: 1})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDonations(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "student@example.org")
	donor := createUser(t, s, "donor@example.org")
	p := createProject(t, s, owner.ID)

	first := &model.Donation{ProjectID: p.ID, DonorID: donor.ID, TxID: "AA11", Lovelace: 5_000_000,
		CreatedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.CreateDonation(ctx, first))
	assert.Equal(t, "aa11", first.TxID)
	assert.Equal(t, "5.000000", first.Amount)

	second := &model.Donation{ProjectID: p.ID, DonorID: donor.ID, TxID: "bb22", Lovelace: 20_000_000, Message: "good luck",
		CreatedAt: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.CreateDonation(ctx, second))

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(25_000_000), got.RaisedLovelace)

	// duplicate tx id leaves the total unchanged
	dup := &model.Donation{ProjectID: p.ID, DonorID: donor.ID, TxID: "aa11", Lovelace: 1_000_000}
	require.ErrorIs(t, s.CreateDonation(ctx, dup), store.ErrDuplicateTx)
	got, err = s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(25_000_000), got.RaisedLovelace)

	missing := &model.Donation{ProjectID: "nope", DonorID: donor.ID, TxID: "cc33", Lovelace: 1}
	require.ErrorIs(t, s.CreateDonation(ctx, missing), store.ErrNotFound)

	tooBig := &model.Donation{ProjectID: p.ID, DonorID: donor.ID, TxID: "ee55", Lovelace: 1 << 63}
	require.ErrorIs(t, s.CreateDonation(ctx, tooBig), store.ErrAmountRange)

	ghost := &model.Donation{ProjectID: p.ID, DonorID: "ghost", TxID: "dd44", Lovelace: 1}
	require.ErrorIs(t, s.CreateDonation(ctx, ghost), store.ErrUnknownDonor)

	all, total, err := s.ListDonations(ctx, model.DonationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(25_000_000), total)
	assert.Equal(t, "bb22", all[0].TxID, "newest first")
	assert.Equal(t, "good luck", all[0].Message)

	minAmount := "10"
	big, _, err := s.ListDonations(ctx, model.DonationFilter{MinAmount: &minAmount})
	require.NoError(t, err)
	require.Len(t, big, 1)
	assert.Equal(t, "bb22", big[0].TxID)

	// above the supply would wrap negative in SQL and match everything
	huge := "10000000000000"
	_, _, err = s.ListDonations(ctx, model.DonationFilter{MinAmount: &huge})
	require.ErrorContains(t, err, "invalid minAmount")

	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	early, _, err := s.ListDonations(ctx, model.DonationFilter{To: &to})
	require.NoError(t, err)
	require.Len(t, early, 1)
	assert.Equal(t, "aa11", early[0].TxID)

	txID := "AA11"
	byTx, _, err := s.ListDonations(ctx, model.DonationFilter{TxID: &txID, ProjectID: &p.ID, DonorID: &donor.ID})
	require.NoError(t, err)
	assert.Len(t, byTx, 1)

	none, total, err := s.ListDonations(ctx, model.DonationFilter{ProjectID: &owner.ID})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Zero(t, total)

	// deleting the project removes its donations
	require.NoError(t, s.DeleteProject(ctx, p.ID))
	all, _, err = s.ListDonations(ctx, model.DonationFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}
