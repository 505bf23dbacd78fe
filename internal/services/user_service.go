package services

import (
	"github.com/ssuzuki-dev/enquete/internal/models"
)

type UserStore interface {
	ListUsers() ([]models.User, error)
	GetUser(id string) (*models.User, error)
	UpdateUserRole(id, role string) error
	DeleteUser(id string) error
	CountUsersByRole(role string) (int, error)
}

// UserService covers the admin-only account management screens.
type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

func (s *UserService) List() ([]models.User, error) {
	return s.store.ListUsers()
}

// UpdateRole changes a user's role. Demoting the last remaining admin would
// lock everyone out, so it is refused.
func (s *UserService) UpdateRole(id, role string) error {
	if !models.ValidRole(role) {
		return NewInvalidError("role must be admin, editor or viewer")
	}
	u, err := s.store.GetUser(id)
	if err != nil {
		return err
	}
	if u == nil {
		return NewNotFoundError("user not found")
	}
	if u.Role == models.RoleAdmin && role != models.RoleAdmin {
		if err := s.requireAnotherAdmin(); err != nil {
			return err
		}
	}
	return s.store.UpdateUserRole(id, role)
}

// Delete removes a user account, refusing to delete the last admin.
func (s *UserService) Delete(id string) error {
	u, err := s.store.GetUser(id)
	if err != nil {
		return err
	}
	if u == nil {
		return NewNotFoundError("user not found")
	}
	if u.Role == models.RoleAdmin {
		if err := s.requireAnotherAdmin(); err != nil {
			return err
		}
	}
	return s.store.DeleteUser(id)
}

func (s *UserService) requireAnotherAdmin() error {
	n, err := s.store.CountUsersByRole(models.RoleAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return NewConflictError("cannot remove the last admin")
	}
	return nil
}
