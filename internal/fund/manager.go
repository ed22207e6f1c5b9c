package fund

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"CharityFund/internal/lock"
	"CharityFund/internal/model"
	"CharityFund/internal/storage"

	"github.com/google/uuid"
)

// AllocationLockKey serializes every pass that reads and mutates open funding.
const AllocationLockKey = "charityfund:allocation"

const maxNameLength = 100

// Notifier is told about projects that became fully funded.
type Notifier interface {
	NotifyFunded(ctx context.Context, projects []model.Project)
}

// ProjectCreate carries the fields of a new project.
type ProjectCreate struct {
	Name        string
	Description string
	FullAmount  int64
}

// ProjectUpdate carries the fields to change; nil fields are left as they are.
type ProjectUpdate struct {
	Name        *string
	Description *string
	FullAmount  *int64
}

// DonationCreate carries the fields of a new donation.
type DonationCreate struct {
	FullAmount int64
	Comment    string
	UserID     string
}

// Manager validates requests, runs allocation passes and persists their results.
type Manager struct {
	store    *storage.Store
	locker   lock.Locker
	notifier Notifier

	now       func() time.Time
	newPassID func() string
}

// NewManager creates a Manager. A nil notifier disables notifications.
func NewManager(store *storage.Store, locker lock.Locker, notifier Notifier) *Manager {
	return &Manager{
		store:     store,
		locker:    locker,
		notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
		newPassID: uuid.NewString,
	}
}

// CreateProject stores a new project and funds it from open donations.
func (m *Manager) CreateProject(ctx context.Context, in ProjectCreate) (*model.Project, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, fmt.Errorf("description is required: %w", ErrInvalidInput)
	}
	if in.FullAmount <= 0 {
		return nil, fmt.Errorf("full_amount must be positive: %w", ErrInvalidInput)
	}

	var p *model.Project
	err := m.locker.WithLock(ctx, AllocationLockKey, func(ctx context.Context) error {
		return m.store.InTx(ctx, func(tx *storage.Tx) error {
			if _, taken, err := tx.ProjectIDByName(ctx, name); err != nil {
				return err
			} else if taken {
				return ErrDuplicateName
			}

			p = &model.Project{
				Fundable:    model.NewFundable(in.FullAmount, m.now()),
				Name:        name,
				Description: in.Description,
			}
			if err := tx.CreateProject(ctx, p); err != nil {
				return err
			}
			if err := m.fundProject(ctx, tx, p); err != nil {
				return err
			}
			return tx.SaveFunding(ctx, model.KindProject, &p.Fundable)
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] project %d %q created: invested %d/%d", p.ID, p.Name, p.InvestedAmount, p.FullAmount)
	if p.FullyInvested {
		m.notify(ctx, []model.Project{*p})
	}
	return p, nil
}

// UpdateProject edits an open project. Changing full_amount reruns allocation
// so the project can absorb donations that are still open.
func (m *Manager) UpdateProject(ctx context.Context, id int64, in ProjectUpdate) (*model.Project, error) {
	if in.Name == nil && in.Description == nil && in.FullAmount == nil {
		return nil, fmt.Errorf("nothing to update: %w", ErrInvalidInput)
	}

	var p *model.Project
	err := m.locker.WithLock(ctx, AllocationLockKey, func(ctx context.Context) error {
		return m.store.InTx(ctx, func(tx *storage.Tx) error {
			var err error
			if p, err = tx.GetProject(ctx, id); err != nil {
				return err
			}
			if p.FullyInvested {
				return ErrProjectClosed
			}

			if in.Name != nil {
				name := strings.TrimSpace(*in.Name)
				if err := validateName(name); err != nil {
					return err
				}
				if other, taken, err := tx.ProjectIDByName(ctx, name); err != nil {
					return err
				} else if taken && other != p.ID {
					return ErrDuplicateName
				}
				p.Name = name
			}
			if in.Description != nil {
				if strings.TrimSpace(*in.Description) == "" {
					return fmt.Errorf("description cannot be empty: %w", ErrInvalidInput)
				}
				p.Description = *in.Description
			}

			if in.FullAmount != nil && *in.FullAmount != p.FullAmount {
				amount := *in.FullAmount
				if amount <= 0 {
					return fmt.Errorf("full_amount must be positive: %w", ErrInvalidInput)
				}
				if amount < p.InvestedAmount {
					return ErrAmountBelowInvested
				}
				p.FullAmount = amount
				if p.Remaining() == 0 {
					p.Close(m.now())
				} else if err := m.fundProject(ctx, tx, p); err != nil {
					return err
				}
			}
			return tx.UpdateProject(ctx, p)
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] project %d updated: invested %d/%d", p.ID, p.InvestedAmount, p.FullAmount)
	if p.FullyInvested {
		m.notify(ctx, []model.Project{*p})
	}
	return p, nil
}

// DeleteProject removes a project that has not received any money.
func (m *Manager) DeleteProject(ctx context.Context, id int64) (*model.Project, error) {
	var p *model.Project
	err := m.locker.WithLock(ctx, AllocationLockKey, func(ctx context.Context) error {
		return m.store.InTx(ctx, func(tx *storage.Tx) error {
			var err error
			if p, err = tx.GetProject(ctx, id); err != nil {
				return err
			}
			if p.InvestedAmount > 0 {
				return ErrProjectFunded
			}
			return tx.DeleteProject(ctx, id)
		})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] project %d %q deleted", p.ID, p.Name)
	return p, nil
}

// CreateDonation stores a new donation and spreads it over open projects.
func (m *Manager) CreateDonation(ctx context.Context, in DonationCreate) (*model.Donation, error) {
	if in.FullAmount <= 0 {
		return nil, fmt.Errorf("full_amount must be positive: %w", ErrInvalidInput)
	}

	var (
		d      *model.Donation
		funded []model.Project
	)
	err := m.locker.WithLock(ctx, AllocationLockKey, func(ctx context.Context) error {
		return m.store.InTx(ctx, func(tx *storage.Tx) error {
			d = &model.Donation{
				Fundable: model.NewFundable(in.FullAmount, m.now()),
				Comment:  in.Comment,
				UserID:   in.UserID,
			}
			if err := tx.CreateDonation(ctx, d); err != nil {
				return err
			}

			projects, err := tx.OpenProjects(ctx)
			if err != nil {
				return err
			}
			open := make([]*model.Fundable, len(projects))
			for i, p := range projects {
				open[i] = &p.Fundable
			}
			if err := m.runPass(ctx, tx, model.KindDonation, &d.Fundable, open); err != nil {
				return err
			}
			if err := tx.SaveFunding(ctx, model.KindDonation, &d.Fundable); err != nil {
				return err
			}

			// Everything in projects was open before the pass.
			for _, p := range projects {
				if p.FullyInvested {
					funded = append(funded, *p)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] donation %d received: invested %d/%d, %d project(s) funded",
		d.ID, d.InvestedAmount, d.FullAmount, len(funded))
	if len(funded) > 0 {
		m.notify(ctx, funded)
	}
	return d, nil
}

func (m *Manager) ListProjects(ctx context.Context) ([]*model.Project, error) {
	return m.store.ListProjects(ctx)
}

func (m *Manager) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	return m.store.GetProject(ctx, id)
}

func (m *Manager) ListDonations(ctx context.Context) ([]*model.Donation, error) {
	return m.store.ListDonations(ctx)
}

func (m *Manager) ListUserDonations(ctx context.Context, userID string) ([]*model.Donation, error) {
	return m.store.ListUserDonations(ctx, userID)
}

// ProjectTransfers returns the donation money that went into a project.
func (m *Manager) ProjectTransfers(ctx context.Context, id int64) ([]model.Transfer, error) {
	if _, err := m.store.GetProject(ctx, id); err != nil {
		return nil, err
	}
	return m.store.ListTransfers(ctx, model.KindProject, id)
}

// Summary returns the current funding totals.
func (m *Manager) Summary(ctx context.Context) (*model.Summary, error) {
	return m.store.Summary(ctx)
}

// RecordSnapshot stores the current funding totals and returns them.
func (m *Manager) RecordSnapshot(ctx context.Context) (*model.Summary, error) {
	sum, err := m.store.Summary(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.store.RecordSnapshot(ctx, sum); err != nil {
		return nil, fmt.Errorf("record snapshot: %w", err)
	}
	return sum, nil
}

// fundProject runs p against the open donations.
func (m *Manager) fundProject(ctx context.Context, tx *storage.Tx, p *model.Project) error {
	donations, err := tx.OpenDonations(ctx)
	if err != nil {
		return err
	}
	open := make([]*model.Fundable, len(donations))
	for i, d := range donations {
		open[i] = &d.Fundable
	}
	return m.runPass(ctx, tx, model.KindProject, &p.Fundable, open)
}

// runPass allocates x (of the given kind) against open counterparts and
// persists the touched counterparts with one transfer row per move. Saving x
// is left to the caller.
func (m *Manager) runPass(ctx context.Context, tx *storage.Tx, kind model.Kind, x *model.Fundable, open []*model.Fundable) error {
	now := m.now()
	moves := Allocate(x, open, now)
	if len(moves) == 0 {
		return nil
	}

	passID := m.newPassID()
	transfers := make([]model.Transfer, 0, len(moves))
	for _, mv := range moves {
		if err := tx.SaveFunding(ctx, kind.Counterpart(), mv.Counterpart); err != nil {
			return err
		}
		t := model.Transfer{PassID: passID, Amount: mv.Amount, CreatedAt: now}
		if kind == model.KindProject {
			t.ProjectID, t.DonationID = x.ID, mv.Counterpart.ID
		} else {
			t.ProjectID, t.DonationID = mv.Counterpart.ID, x.ID
		}
		transfers = append(transfers, t)
	}
	return tx.InsertTransfers(ctx, transfers)
}

func (m *Manager) notify(ctx context.Context, projects []model.Project) {
	if m.notifier == nil {
		return
	}
	m.notifier.NotifyFunded(context.WithoutCancel(ctx), projects)
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	if len([]rune(name)) > maxNameLength {
		return fmt.Errorf("name is longer than %d characters: %w", maxNameLength, ErrInvalidInput)
	}
	return nil
}
