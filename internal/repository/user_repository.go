package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// UserCredential stores a username with its bcrypt password hash. The
// plaintext password is never persisted. Username uniqueness is enforced at
// the store layer.
type UserCredential struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"column:username;uniqueIndex;size:64"`
	PasswordHash string    `gorm:"column:password_hash;size:128"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (UserCredential) TableName() string {
	return "users"
}

// UserRepository provides persistence APIs for user credentials.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// AutoMigrate ensures the schema is available.
func (r *UserRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&UserCredential{})
}

// Insert stores a new credential. Inserting an existing username surfaces
// gorm.ErrDuplicatedKey (requires TranslateError on the gorm config).
func (r *UserRepository) Insert(ctx context.Context, credential *UserCredential) error {
	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(credential).Error
}

// FindByUsername retrieves the credential for a username, or
// gorm.ErrRecordNotFound.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*UserCredential, error) {
	var credential UserCredential
	if err := r.db.WithContext(ctx).First(&credential, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &credential, nil
}
