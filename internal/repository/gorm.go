package repository

import (
	"errors"

	"gorm.io/gorm"
)

// asRepoErr maps gorm's not-found sentinel onto the repository contract.
func asRepoErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
