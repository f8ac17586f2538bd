// AngelaMos | 2026
// dto.go

package user

import (
	"strings"
	"time"
)

// UpdateUserRequest is a partial update. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty"     validate:"omitempty,min=2,max=255"`
	Email    *string `json:"email,omitempty"    validate:"omitempty,email,max=255"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
	Role     *string `json:"role,omitempty"     validate:"omitempty,oneof=user admin"`
}

func (r *UpdateUserRequest) Normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*r.Email))
		r.Email = &email
	}
}

func (r *UpdateUserRequest) HasChanges() bool {
	return r.Name != nil || r.Email != nil || r.Password != nil || r.Role != nil
}

type ListUsersParams struct {
	Search string
	Role   string
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserEnvelope struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type UserListResponse struct {
	Message string         `json:"message"`
	Users   []UserResponse `json:"users"`
	Count   int            `json:"count"`
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}
