package sqlstore

import (
	"time"

	"github.com/MrEthical07/tokenguard"
)

// userModel is the users table. Username and email carry unique indexes;
// email is stored lower-cased.
type userModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	Username     string    `gorm:"uniqueIndex;not null;type:varchar(255)"`
	Email        string    `gorm:"uniqueIndex;not null;type:varchar(320)"`
	FirstName    string    `gorm:"type:varchar(255)"`
	LastName     string    `gorm:"type:varchar(255)"`
	PasswordHash string    `gorm:"not null;type:text"`
	Fingerprint  string    `gorm:"not null;type:varchar(64)"`
	Role         string    `gorm:"not null;type:varchar(32);default:customer"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (userModel) TableName() string {
	return "users"
}

// revokedTokenModel is one revoked jti. Rows are purged once expire_at passes.
type revokedTokenModel struct {
	JTI       string    `gorm:"column:jti;primaryKey;type:varchar(64)"`
	ExpireAt  time.Time `gorm:"column:expire_at;index;not null"`
	Reason    string    `gorm:"type:varchar(64)"`
	CreatedAt time.Time `gorm:"not null"`
}

func (revokedTokenModel) TableName() string {
	return "revoked_tokens"
}

func fromRecord(r tokenguard.UserRecord) userModel {
	return userModel{
		ID:           r.ID,
		Username:     r.Username,
		Email:        normalizeEmail(r.Email),
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		PasswordHash: r.PasswordHash,
		Fingerprint:  r.Fingerprint,
		Role:         r.Role,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (m userModel) record() tokenguard.UserRecord {
	return tokenguard.UserRecord{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		PasswordHash: m.PasswordHash,
		Fingerprint:  m.Fingerprint,
		Role:         m.Role,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
