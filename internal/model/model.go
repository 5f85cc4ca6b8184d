package model

import (
	"errors"
	"fmt"

	"github.com/thep200/github-top100/cfg"
	"github.com/thep200/github-top100/pkg/db"
	"github.com/thep200/github-top100/pkg/log"
)

// ErrStorage wraps every failure coming from the relational store.
var ErrStorage = errors.New("storage error")

// ErrInvalidSort is returned by TopN for an unknown sort field or order.
var ErrInvalidSort = errors.New("invalid sort")

type Model struct {
	Config   *cfg.Config
	Logger   log.Logger
	Database *db.Database
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
