package services

import (
	"sort"
	"testing"

	"github.com/ssuzuki-dev/enquete/internal/models"
)

type stubUserStore struct {
	users map[string]*models.User // by id
}

func newStubUserStore(users ...*models.User) *stubUserStore {
	s := &stubUserStore{users: map[string]*models.User{}}
	for _, u := range users {
		copy := *u
		s.users[u.ID] = &copy
	}
	return s
}

func (s *stubUserStore) ListUsers() ([]models.User, error) {
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubUserStore) GetUser(id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, nil
}

func (s *stubUserStore) UpdateUserRole(id, role string) error {
	u, ok := s.users[id]
	if !ok {
		return NewNotFoundError("user not found")
	}
	u.Role = role
	return nil
}

func (s *stubUserStore) DeleteUser(id string) error {
	delete(s.users, id)
	return nil
}

func (s *stubUserStore) CountUsersByRole(role string) (int, error) {
	n := 0
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func TestUserService_UpdateRole(t *testing.T) {
	store := newStubUserStore(
		&models.User{ID: "u1", Username: "root", Role: models.RoleAdmin},
		&models.User{ID: "u2", Username: "mei", Role: models.RoleViewer},
	)
	svc := NewUserService(store)

	if err := svc.UpdateRole("u2", models.RoleEditor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, _ := store.GetUser("u2")
	if u.Role != models.RoleEditor {
		t.Fatalf("role = %q, want editor", u.Role)
	}

	if err := svc.UpdateRole("u2", "superuser"); err == nil {
		t.Fatal("unknown role should be rejected")
	}
	if err := svc.UpdateRole("missing", models.RoleViewer); err == nil {
		t.Fatal("unknown user should be rejected")
	}
}

func TestUserService_LastAdminGuard(t *testing.T) {
	store := newStubUserStore(
		&models.User{ID: "u1", Username: "root", Role: models.RoleAdmin},
		&models.User{ID: "u2", Username: "mei", Role: models.RoleViewer},
	)
	svc := NewUserService(store)

	if err := svc.UpdateRole("u1", models.RoleViewer); err == nil {
		t.Fatal("demoting the last admin should be refused")
	}
	if err := svc.Delete("u1"); err == nil {
		t.Fatal("deleting the last admin should be refused")
	}

	// With a second admin both operations go through.
	if err := svc.UpdateRole("u2", models.RoleAdmin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.UpdateRole("u1", models.RoleEditor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete("u2"); err == nil {
		t.Fatal("u2 is now the last admin and must not be deletable")
	}
}

func TestUserService_DeleteNonAdmin(t *testing.T) {
	store := newStubUserStore(
		&models.User{ID: "u1", Username: "root", Role: models.RoleAdmin},
		&models.User{ID: "u2", Username: "mei", Role: models.RoleViewer},
	)
	svc := NewUserService(store)
	if err := svc.Delete("u2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	users, _ := svc.List()
	if len(users) != 1 || users[0].ID != "u1" {
		t.Fatalf("users after delete = %+v", users)
	}
}
