package sqlstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MrEthical07/tokenguard/revocation"
)

// RevocationStore keeps revoked jti values in the revoked_tokens table.
// Expired rows are invisible to Exists and removed by a Purger.
type RevocationStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRevocationStore returns a store over the revoked_tokens table.
func NewRevocationStore(db *gorm.DB) *RevocationStore {
	return &RevocationStore{db: db, now: time.Now}
}

func (s *RevocationStore) Exists(ctx context.Context, jti string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&revokedTokenModel{}).
		Where("jti = ? AND expire_at > ?", jti, s.now()).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("%w: %v", revocation.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// Insert is a no-op for an existing jti or a record that has already expired.
func (s *RevocationStore) Insert(ctx context.Context, jti string, expireAt time.Time, reason string) error {
	now := s.now()
	if !expireAt.After(now) {
		return nil
	}
	row := revokedTokenModel{JTI: jti, ExpireAt: expireAt.UTC(), Reason: reason, CreatedAt: now.UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: %v", revocation.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteExpired removes rows whose expire_at is at or before now.
func (s *RevocationStore) DeleteExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expire_at <= ?", s.now()).
		Delete(&revokedTokenModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", revocation.ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}
