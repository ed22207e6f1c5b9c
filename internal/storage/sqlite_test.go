package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"CharityFund/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_OpenFundablesOrderedOldestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx *Tx) error {
		// Inserted out of creation order; two share a timestamp.
		for _, d := range []*model.Donation{
			{Fundable: model.NewFundable(10, base.Add(2*time.Hour))},
			{Fundable: model.NewFundable(20, base)},
			{Fundable: model.NewFundable(30, base)},
			{Fundable: model.NewFundable(40, base.Add(time.Hour))},
		} {
			if err := tx.CreateDonation(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var amounts []int64
	err = s.InTx(ctx, func(tx *Tx) error {
		open, err := tx.OpenDonations(ctx)
		for _, d := range open {
			amounts = append(amounts, d.FullAmount)
		}
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 30, 40, 10}, amounts)
}

func TestStore_SaveFundingHidesClosed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := &model.Project{Fundable: model.NewFundable(100, base), Name: "A", Description: "a"}
	q := &model.Project{Fundable: model.NewFundable(100, base.Add(time.Minute)), Name: "B", Description: "b"}
	require.NoError(t, s.InTx(ctx, func(tx *Tx) error {
		if err := tx.CreateProject(ctx, p); err != nil {
			return err
		}
		return tx.CreateProject(ctx, q)
	}))

	closedAt := base.Add(time.Hour)
	p.Close(closedAt)
	q.InvestedAmount = 30
	require.NoError(t, s.InTx(ctx, func(tx *Tx) error {
		if err := tx.SaveFunding(ctx, model.KindProject, &p.Fundable); err != nil {
			return err
		}
		return tx.SaveFunding(ctx, model.KindProject, &q.Fundable)
	}))

	var open []*model.Project
	require.NoError(t, s.InTx(ctx, func(tx *Tx) error {
		var err error
		open, err = tx.OpenProjects(ctx)
		return err
	}))
	require.Len(t, open, 1)
	assert.Equal(t, q.ID, open[0].ID)
	assert.Equal(t, int64(30), open[0].InvestedAmount)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.FullyInvested)
	require.NotNil(t, got.CloseDate)
	assert.True(t, got.CloseDate.Equal(closedAt))
	assert.True(t, got.CreateDate.Equal(base))
}

func TestStore_RollbackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx *Tx) error {
		if err := tx.CreateProject(ctx, &model.Project{Fundable: model.NewFundable(5, base), Name: "X", Description: "x"}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestStore_ProjectNameLookupAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := &model.Project{Fundable: model.NewFundable(5, base), Name: "Unique", Description: "u"}
	require.NoError(t, s.InTx(ctx, func(tx *Tx) error { return tx.CreateProject(ctx, p) }))

	require.NoError(t, s.InTx(ctx, func(tx *Tx) error {
		id, ok, err := tx.ProjectIDByName(ctx, "Unique")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, p.ID, id)

		_, ok, err = tx.ProjectIDByName(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))

	// The unique constraint backs up the name check.
	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.CreateProject(ctx, &model.Project{Fundable: model.NewFundable(5, base), Name: "Unique", Description: "again"})
	})
	assert.Error(t, err)

	require.NoError(t, s.InTx(ctx, func(tx *Tx) error { return tx.DeleteProject(ctx, p.ID) }))
	err = s.InTx(ctx, func(tx *Tx) error { return tx.DeleteProject(ctx, p.ID) })
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_InvestedCannotExceedFull(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d := &model.Donation{Fundable: model.NewFundable(50, base)}
	require.NoError(t, s.InTx(ctx, func(tx *Tx) error { return tx.CreateDonation(ctx, d) }))

	d.InvestedAmount = 51
	err := s.InTx(ctx, func(tx *Tx) error { return tx.SaveFunding(ctx, model.KindDonation, &d.Fundable) })
	assert.Error(t, err)
}

func TestStore_TransfersAndUserDonations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d1 := &model.Donation{Fundable: model.NewFundable(50, base), UserID: "alice", Comment: "first"}
	d2 := &model.Donation{Fundable: model.NewFundable(70, base.Add(time.Second)), UserID: "bob"}
	require.NoError(t, s.InTx(ctx, func(tx *Tx) error {
		if err := tx.CreateDonation(ctx, d1); err != nil {
			return err
		}
		if err := tx.CreateDonation(ctx, d2); err != nil {
			return err
		}
		return tx.InsertTransfers(ctx, []model.Transfer{
			{PassID: "p1", ProjectID: 7, DonationID: d1.ID, Amount: 50, CreatedAt: base},
			{PassID: "p1", ProjectID: 7, DonationID: d2.ID, Amount: 20, CreatedAt: base},
			{PassID: "p2", ProjectID: 8, DonationID: d2.ID, Amount: 50, CreatedAt: base},
		})
	}))

	byProject, err := s.ListTransfers(ctx, model.KindProject, 7)
	require.NoError(t, err)
	require.Len(t, byProject, 2)
	assert.Equal(t, int64(20), byProject[1].Amount)

	byDonation, err := s.ListTransfers(ctx, model.KindDonation, d2.ID)
	require.NoError(t, err)
	require.Len(t, byDonation, 2)
	assert.Equal(t, "p2", byDonation[1].PassID)

	mine, err := s.ListUserDonations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "first", mine[0].Comment)
}

func TestStore_Snapshots(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	empty, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.ProjectsTotal)
	assert.Equal(t, int64(0), empty.DonatedAmount)

	for i := 0; i < 3; i++ {
		sum := &model.Summary{ProjectsTotal: i, TakenAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, s.RecordSnapshot(ctx, sum))
	}

	snaps, err := s.ListSnapshots(ctx, 2)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, 2, snaps[0].ProjectsTotal)
	assert.True(t, snaps[0].TakenAt.Equal(base.Add(2*time.Hour)))
}
