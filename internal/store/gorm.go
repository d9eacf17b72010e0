package store

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/models"
	"gorm.io/gorm"
)

// GormStore keeps users in a SQL table with a unique index on email. The
// database must be opened with TranslateError so unique violations surface
// as gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Find(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, wrap("find user", err)
	}
	return &user, nil
}

func (s *GormStore) Add(ctx context.Context, email string) (*models.User, error) {
	user, err := newUser(email)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateIdentity
		}
		return nil, wrap("create user", err)
	}
	return user, nil
}

func (s *GormStore) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, wrap("list users", err)
	}
	return users, nil
}

func (s *GormStore) Remove(ctx context.Context, email string) (bool, error) {
	result := s.db.WithContext(ctx).Where("email = ?", email).Delete(&models.User{})
	if result.Error != nil {
		return false, wrap("delete user", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrap("get sql handle", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return wrap("ping database", err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
