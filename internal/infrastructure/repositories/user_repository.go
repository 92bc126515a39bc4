package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/you/accountsvc/domain"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// DBUser represents the database model for User (with GORM tags)
type DBUser struct {
	ID           uint       `gorm:"primaryKey"`
	Email        string     `gorm:"uniqueIndex;size:255;not null"`
	Name         string     `gorm:"size:255;not null"`
	PasswordHash string     `gorm:"column:password;not null"`
	OTP          *string    `gorm:"column:otp;size:16"`
	OTPExpires   *time.Time `gorm:"column:otp_expires"`
	CreatedAt    time.Time  `gorm:"index"`
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (DBUser) TableName() string {
	return "users"
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create implements domain.UserRepository. The unique index on email closes
// the race between an existence check and the insert.
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	dbUser := r.domainToDB(user)
	if err := r.db.WithContext(ctx).Create(dbUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrUserAlreadyExists
		}
		return err
	}
	user.ID = dbUser.ID
	user.CreatedAt = dbUser.CreatedAt
	user.UpdatedAt = dbUser.UpdatedAt
	return nil
}

// FindByEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser), nil
}

// FindByID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser), nil
}

// UpdateByID implements domain.UserRepository
func (r *UserRepositoryImpl) UpdateByID(ctx context.Context, id uint, update domain.UserUpdate, validate bool) (*domain.User, error) {
	var updated *domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dbUser DBUser
		if err := tx.Where("id = ?", id).First(&dbUser).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUserNotFound
			}
			return err
		}

		user := r.dbToDomain(&dbUser)
		update.Apply(user)
		if validate {
			if err := user.Validate(); err != nil {
				return err
			}
		}

		fields := map[string]interface{}{}
		if update.Name != nil {
			fields["name"] = user.Name
		}
		if update.PasswordHash != nil {
			fields["password"] = user.PasswordHash
		}
		if err := tx.Model(&dbUser).Updates(fields).Error; err != nil {
			return err
		}

		updated = r.dbToDomain(&dbUser)
		update.Apply(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteByID implements domain.UserRepository
func (r *UserRepositoryImpl) DeleteByID(ctx context.Context, id uint) (*domain.User, error) {
	var deleted *domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dbUser DBUser
		if err := tx.Where("id = ?", id).First(&dbUser).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUserNotFound
			}
			return err
		}
		res := tx.Delete(&DBUser{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}
		deleted = r.dbToDomain(&dbUser)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Save implements domain.UserRepository. Only the otp pair is written; name
// and password change through UpdateByID so a concurrent edit of either
// survives a resend. With validate false the document checks are skipped.
func (r *UserRepositoryImpl) Save(ctx context.Context, user *domain.User, validate bool) error {
	if validate {
		if err := user.Validate(); err != nil {
			return err
		}
	}
	dbUser := r.domainToDB(user)
	res := r.db.WithContext(ctx).Model(&DBUser{ID: user.ID}).
		Select("otp", "otp_expires").
		Updates(map[string]interface{}{"otp": dbUser.OTP, "otp_expires": dbUser.OTPExpires})
	if res.Error != nil {
		return fmt.Errorf("failed to save user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeOTP implements domain.UserRepository as a single conditional update
func (r *UserRepositoryImpl) ConsumeOTP(ctx context.Context, id uint, code string, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&DBUser{}).
		Where("id = ? AND otp = ? AND otp_expires > ?", id, code, now.UTC()).
		Updates(map[string]interface{}{"otp": nil, "otp_expires": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOTPInvalid
	}
	return nil
}

// domainToDB converts domain user to database user
func (r *UserRepositoryImpl) domainToDB(user *domain.User) *DBUser {
	var expires *time.Time
	if user.OTPExpires != nil {
		utc := user.OTPExpires.UTC()
		expires = &utc
	}
	return &DBUser{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		OTP:          user.OTP,
		OTPExpires:   expires,
	}
}

// dbToDomain converts database user to domain user
func (r *UserRepositoryImpl) dbToDomain(dbUser *DBUser) *domain.User {
	return &domain.User{
		ID:           dbUser.ID,
		Email:        dbUser.Email,
		Name:         dbUser.Name,
		PasswordHash: dbUser.PasswordHash,
		OTP:          dbUser.OTP,
		OTPExpires:   dbUser.OTPExpires,
		CreatedAt:    dbUser.CreatedAt,
		UpdatedAt:    dbUser.UpdatedAt,
	}
}
