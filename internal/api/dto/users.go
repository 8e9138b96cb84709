package dto

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r CreateUserRequest) Validate() map[string]string {
	return RegisterRequest{Name: r.Name, Email: r.Email, Password: r.Password}.Validate()
}

// UpdateUserRequest is a partial update. Password is decoded so it can be
// ignored explicitly; it is never applied through this endpoint.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
	Password *string `json:"password"`
}

type UsersResponse struct {
	Users []UserDTO `json:"users"`
}

type UserMutationResponse struct {
	Message string  `json:"message"`
	User    UserDTO `json:"user"`
}
