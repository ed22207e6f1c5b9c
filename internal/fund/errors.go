package fund

import (
	"errors"

	"CharityFund/internal/storage"
)

var (
	ErrNotFound            = storage.ErrNotFound
	ErrInvalidInput        = errors.New("invalid input")
	ErrDuplicateName       = errors.New("project with this name already exists")
	ErrProjectClosed       = errors.New("closed project cannot be edited")
	ErrAmountBelowInvested = errors.New("full amount cannot be less than invested amount")
	ErrProjectFunded       = errors.New("project has received investment and cannot be deleted")
)
