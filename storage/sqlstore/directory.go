package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/password"
)

// Directory is a gorm-backed tokenguard.UserDirectory.
type Directory struct {
	db     *gorm.DB
	hasher password.Hasher
	now    func() time.Time
}

// NewDirectory returns a Directory over db. hasher must match the Authority's.
func NewDirectory(db *gorm.DB, hasher password.Hasher) *Directory {
	return &Directory{db: db, hasher: hasher, now: time.Now}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tokenguard.ErrUserNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return tokenguard.ErrDuplicateUser
	case errors.Is(err, tokenguard.ErrUserNotFound), errors.Is(err, tokenguard.ErrDuplicateUser):
		return err
	default:
		return fmt.Errorf("%w: %v", tokenguard.ErrDirectoryUnavailable, err)
	}
}

func (d *Directory) GetUser(ctx context.Context, id string) (tokenguard.UserRecord, error) {
	var m userModel
	if err := d.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		return tokenguard.UserRecord{}, translate(err)
	}
	return m.record(), nil
}

func (d *Directory) FindByUsername(ctx context.Context, username string) (tokenguard.UserRecord, error) {
	var m userModel
	if err := d.db.WithContext(ctx).Where("username = ?", username).Take(&m).Error; err != nil {
		return tokenguard.UserRecord{}, translate(err)
	}
	return m.record(), nil
}

func (d *Directory) InsertUser(ctx context.Context, u tokenguard.NewUser) (string, error) {
	rec, err := tokenguard.PrepareUser(d.hasher, u, d.now())
	if err != nil {
		return "", err
	}
	m := fromRecord(rec)
	if err := d.db.WithContext(ctx).Create(&m).Error; err != nil {
		return "", translate(err)
	}
	return rec.ID, nil
}

// UpdateUser locks the row for the duration of the transaction.
func (d *Directory) UpdateUser(ctx context.Context, id string, upd tokenguard.UserUpdate) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m userModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&m).Error; err != nil {
			return err
		}
		rec := m.record()
		if _, err := tokenguard.ApplyUpdate(d.hasher, &rec, upd, d.now()); err != nil {
			return err
		}
		next := fromRecord(rec)
		return tx.Save(&next).Error
	})
	return translate(err)
}
