package casdoor

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

type fakeSource struct {
	users map[string]*casdoorsdk.User
	calls int
}

func (f *fakeSource) GetUserByUserId(id string) (*casdoorsdk.User, error) {
	f.calls++
	return f.users[id], nil
}

func (f *fakeSource) GetUserByEmail(email string) (*casdoorsdk.User, error) {
	f.calls++
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name string
		user *casdoorsdk.User
		want models.UserRole
	}{
		{"no roles", &casdoorsdk.User{}, models.RoleStudent},
		{"teacher", &casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "Teacher"}}}, models.RoleInstructor},
		{"instructor and student", &casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "student"}, {Name: "instructor"}}}, models.RoleInstructor},
		{"admin flag", &casdoorsdk.User{IsAdmin: true, Roles: []*casdoorsdk.Role{{Name: "student"}}}, models.RoleAdmin},
		{"admin role", &casdoorsdk.User{Roles: []*casdoorsdk.Role{{Name: "administrator"}}}, models.RoleAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRole(tt.user))
		})
	}
}

func TestUserCasdoor_GetByIDCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	src := &fakeSource{users: map[string]*casdoorsdk.User{
		"u-1": {Id: "u-1", DisplayName: "Ada", Email: "ada@example.com"},
	}}
	repo := newUserCasdoor(src, cache.NewCacheManager(client).User)
	ctx := context.Background()

	user, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FullName)
	assert.Equal(t, models.RoleStudent, user.Role)

	again, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, 1, src.calls)
}

func TestUserCasdoor_NotFound(t *testing.T) {
	repo := newUserCasdoor(&fakeSource{users: map[string]*casdoorsdk.User{}}, cache.NewCacheManager(nil).User)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, repositories.IsNotFoundError(err))
}
