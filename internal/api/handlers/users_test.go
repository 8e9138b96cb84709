package handlers_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/api/dto"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"github.com/kamalsharma29/crm-dashboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_List(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, "GET", "/api/users", nil, f.AdminToken)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.UsersResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Len(t, resp.Users, 2)

	rr = f.do(t, "GET", "/api/users", nil, f.EmployeeToken)
	require.Equal(t, http.StatusForbidden, rr.Code)

	var errResp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rr, &errResp)
	assert.Equal(t, "Admin access required", errResp.Message)
}

func TestUserHandler_Create(t *testing.T) {
	f := newFixture(t)

	t.Run("admin creates a manager", func(t *testing.T) {
		rr := f.do(t, "POST", "/api/users", dto.CreateUserRequest{
			Name: "Mia Manager", Email: "mia@example.com", Password: "password123", Role: "manager",
		}, f.AdminToken)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp dto.UserMutationResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "User created successfully", resp.Message)
		assert.Equal(t, models.RoleManager, resp.User.Role)
	})

	t.Run("role defaults to employee", func(t *testing.T) {
		rr := f.do(t, "POST", "/api/users", dto.CreateUserRequest{
			Name: "Eli", Email: "eli@example.com", Password: "password123",
		}, f.AdminToken)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp dto.UserMutationResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, models.RoleEmployee, resp.User.Role)
	})

	t.Run("unknown role", func(t *testing.T) {
		rr := f.do(t, "POST", "/api/users", dto.CreateUserRequest{
			Name: "X", Email: "x@example.com", Password: "password123", Role: "owner",
		}, f.AdminToken)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		rr := f.do(t, "POST", "/api/users", dto.CreateUserRequest{
			Name: "Dup", Email: f.Employee.Email, Password: "password123",
		}, f.AdminToken)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestUserHandler_Get(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, "GET", "/api/users/"+f.Employee.ID.String(), nil, f.AdminToken)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.UserResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, f.Employee.Email, resp.User.Email)

	rr = f.do(t, "GET", "/api/users/"+uuid.New().String(), nil, f.AdminToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUserHandler_Update(t *testing.T) {
	f := newFixture(t)

	t.Run("admin changes role and status", func(t *testing.T) {
		active := false
		role := "manager"
		rr := f.do(t, "PUT", "/api/users/"+f.Employee.ID.String(), dto.UpdateUserRequest{
			Role: &role, IsActive: &active,
		}, f.AdminToken)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp dto.UserMutationResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "User updated successfully", resp.Message)
		assert.Equal(t, models.RoleManager, resp.User.Role)
		assert.False(t, resp.User.IsActive)
	})

	t.Run("email clash", func(t *testing.T) {
		email := f.Admin.Email
		rr := f.do(t, "PUT", "/api/users/"+f.Employee.ID.String(), dto.UpdateUserRequest{Email: &email}, f.AdminToken)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestUserHandler_EmployeeSelfService(t *testing.T) {
	f := newFixture(t)
	role := "admin"

	t.Run("users routes are admin only", func(t *testing.T) {
		rr := f.do(t, "PUT", "/api/users/"+f.Employee.ID.String(), dto.UpdateUserRequest{Role: &role}, f.EmployeeToken)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		var user models.User
		require.NoError(t, f.DB.First(&user, "id = ?", f.Employee.ID).Error)
		assert.Equal(t, models.RoleEmployee, user.Role)
	})

	t.Run("me returns the caller", func(t *testing.T) {
		rr := f.do(t, "GET", "/api/me", nil, f.EmployeeToken)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.UserResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, f.Employee.ID.String(), resp.User.ID)
	})

	t.Run("role change through me is ignored", func(t *testing.T) {
		name := "Renamed Rep"
		password := "new-password-123"
		rr := f.do(t, "PUT", "/api/me", dto.UpdateUserRequest{
			Name: &name, Role: &role, Password: &password,
		}, f.EmployeeToken)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp dto.UserMutationResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Renamed Rep", resp.User.Name)
		assert.Equal(t, models.RoleEmployee, resp.User.Role)

		// password is never applied through a profile update
		rr = f.do(t, "POST", "/api/auth/login", dto.LoginRequest{
			Email: f.Employee.Email, Password: testutil.TestPassword,
		}, "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("me requires a session", func(t *testing.T) {
		rr := f.do(t, "GET", "/api/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestUserHandler_Delete(t *testing.T) {
	f := newFixture(t)

	t.Run("self", func(t *testing.T) {
		rr := f.do(t, "DELETE", "/api/users/"+f.Admin.ID.String(), nil, f.AdminToken)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Cannot delete your own account", resp.Error)
	})

	t.Run("owner of leads", func(t *testing.T) {
		testutil.CreateTestLead(t, f.DB, f.Employee)
		rr := f.do(t, "DELETE", "/api/users/"+f.Employee.ID.String(), nil, f.AdminToken)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("deletes", func(t *testing.T) {
		spare := testutil.CreateTestUser(t, f.DB, models.RoleEmployee, "Spare")
		rr := f.do(t, "DELETE", "/api/users/"+spare.ID.String(), nil, f.AdminToken)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.MessageResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "User deleted successfully", resp.Message)

		rr = f.do(t, "DELETE", "/api/users/"+spare.ID.String(), nil, f.AdminToken)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
