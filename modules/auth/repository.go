package auth

import (
	"errors"
	"strings"
	"time"

	domain "github.com/example/chatflow/domain/user"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateIdentity is returned when a username, email, or mobile
	// number collides with an existing record.
	ErrDuplicateIdentity = errors.New("user already exists with this username, email, or mobile number")
)

// UserRepository handles user persistence using GORM.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *UserRepository) Create(user *domain.User) error {
	result := r.db.Create(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateIdentity
		}
		return result.Error
	}
	return nil
}

// FindByID finds a user by ID.
func (r *UserRepository) FindByID(id string) (*domain.User, error) {
	var user domain.User
	result := r.db.First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// FindByIdentifier finds a user whose email or username matches identifier.
func (r *UserRepository) FindByIdentifier(identifier string) (*domain.User, error) {
	var user domain.User
	result := r.db.First(&user, "email = ? OR username = ?", identifier, identifier)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// IdentityExists checks whether username, email, or mobile collides with an
// existing record. An empty mobile never collides.
func (r *UserRepository) IdentityExists(username, email string, mobile *string) (bool, error) {
	query := r.db.Model(&domain.User{}).Where("username = ? OR email = ?", username, email)
	if mobile != nil && *mobile != "" {
		query = r.db.Model(&domain.User{}).
			Where("username = ? OR email = ? OR mobile = ?", username, email, *mobile)
	}
	var count int64
	if result := query.Count(&count); result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// ListExcept returns all users except the given one.
func (r *UserRepository) ListExcept(excludeID string) ([]domain.User, error) {
	var users []domain.User
	result := r.db.Where("id <> ?", excludeID).Order("username").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

// Search performs a case-insensitive substring match over username and email
// and a plain substring match over mobile, excluding the requesting user.
func (r *UserRepository) Search(query, requesterID string, limit int) ([]domain.User, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var users []domain.User
	result := r.db.
		Where("id <> ?", requesterID).
		Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR mobile LIKE ?",
			pattern, pattern, "%"+query+"%").
		Order("username").
		Limit(limit).
		Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

// FindByIDs returns the users with the given IDs. Unknown IDs are simply
// absent from the result.
func (r *UserRepository) FindByIDs(ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []domain.User
	result := r.db.Where("id IN ?", ids).Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

// FindBot returns the first bot identity, if any.
func (r *UserRepository) FindBot() (*domain.User, error) {
	var user domain.User
	result := r.db.First(&user, "is_bot = ?", true)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// SetPresence updates the online flag; going offline also stamps last seen.
func (r *UserRepository) SetPresence(id string, online bool) (*domain.User, error) {
	user, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	user.IsOnline = online
	if !online {
		user.LastSeen = time.Now()
	}
	if result := r.db.Save(user); result.Error != nil {
		return nil, result.Error
	}
	return user, nil
}

// Count returns the number of users in the directory.
func (r *UserRepository) Count() (int64, error) {
	var count int64
	result := r.db.Model(&domain.User{}).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}
