package handlers_test

import (
	"net/http"
	"testing"

	"github.com/kamalsharma29/crm-dashboard/internal/api/dto"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"github.com/kamalsharma29/crm-dashboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedLeads creates ten leads: six owned by the employee, four by the admin.
func seedLeads(t *testing.T, f *fixture) []*models.Lead {
	t.Helper()

	var out []*models.Lead
	for i := 0; i < 6; i++ {
		out = append(out, testutil.CreateTestLead(t, f.DB, f.Employee))
	}
	for i := 0; i < 4; i++ {
		out = append(out, testutil.CreateTestLead(t, f.DB, f.Admin))
	}
	return out
}

func TestLeadHandler_List(t *testing.T) {
	f := newFixture(t)
	seeded := seedLeads(t, f)
	require.Len(t, seeded, 10)

	t.Run("admin sees every lead", func(t *testing.T) {
		rr := f.do(t, "GET", "/api/leads", nil, f.AdminToken)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.LeadsResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Len(t, resp.Leads, 10)
	})

	t.Run("employee sees only their own", func(t *testing.T) {
		rr := f.do(t, "GET", "/api/leads", nil, f.EmployeeToken)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.LeadsResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.Len(t, resp.Leads, 6)
		for _, l := range resp.Leads {
			require.NotNil(t, l.AssignedTo)
			assert.Equal(t, f.Employee.ID.String(), l.AssignedTo.ID)
			assert.Equal(t, f.Employee.Name, l.AssignedTo.Name)
		}
	})

	t.Run("employee assignedTo filter is ignored", func(t *testing.T) {
		rr := f.do(t, "GET", "/api/leads?assignedTo="+f.Admin.ID.String(), nil, f.EmployeeToken)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.LeadsResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Len(t, resp.Leads, 6)
	})

	t.Run("admin filters by owner", func(t *testing.T) {
		rr := f.do(t, "GET", "/api/leads?assignedTo="+f.Admin.ID.String(), nil, f.AdminToken)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.LeadsResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Len(t, resp.Leads, 4)
	})

	t.Run("bad status filter", func(t *testing.T) {
		rr := f.do(t, "GET", "/api/leads?status=bogus", nil, f.AdminToken)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rr := f.do(t, "GET", "/api/leads", nil, "")
		require.Equal(t, http.StatusUnauthorized, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Unauthorized", resp.Error)
		assert.Equal(t, "Authentication required", resp.Message)
	})
}

func TestLeadHandler_Create(t *testing.T) {
	f := newFixture(t)

	t.Run("employee assignedTo is forced to self", func(t *testing.T) {
		assignee := f.Admin.ID.String()
		rr := f.do(t, "POST", "/api/leads", dto.CreateLeadRequest{
			Name:       "Acme",
			Email:      "buyer@acme.test",
			Value:      testutil.Float(2500),
			AssignedTo: &assignee,
		}, f.EmployeeToken)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp dto.LeadMutationResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Lead created successfully", resp.Message)
		assert.Equal(t, models.LeadStatusNew, resp.Lead.Status)
		assert.Equal(t, models.LeadSourceOther, resp.Lead.Source)
		require.NotNil(t, resp.Lead.AssignedTo)
		assert.Equal(t, f.Employee.ID.String(), resp.Lead.AssignedTo.ID)
	})

	t.Run("admin may assign", func(t *testing.T) {
		assignee := f.Employee.ID.String()
		rr := f.do(t, "POST", "/api/leads", dto.CreateLeadRequest{
			Name: "Globex", Email: "ops@globex.test", AssignedTo: &assignee,
		}, f.AdminToken)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp dto.LeadMutationResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, f.Employee.ID.String(), resp.Lead.AssignedTo.ID)
	})

	t.Run("name and email are required", func(t *testing.T) {
		rr := f.do(t, "POST", "/api/leads", dto.CreateLeadRequest{Company: "NoName"}, f.AdminToken)
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Name and email are required", resp.Error)
	})

	t.Run("malformed assignee", func(t *testing.T) {
		bad := "not-a-uuid"
		rr := f.do(t, "POST", "/api/leads", dto.CreateLeadRequest{
			Name: "X", Email: "x@x.test", AssignedTo: &bad,
		}, f.AdminToken)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLeadHandler_Get(t *testing.T) {
	f := newFixture(t)
	own := testutil.CreateTestLead(t, f.DB, f.Employee)
	other := testutil.CreateTestLead(t, f.DB, f.Admin)

	rr := f.do(t, "GET", "/api/leads/"+own.ID.String(), nil, f.EmployeeToken)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.LeadResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	assert.Equal(t, own.ID.String(), resp.Lead.ID)

	rr = f.do(t, "GET", "/api/leads/"+other.ID.String(), nil, f.EmployeeToken)
	require.Equal(t, http.StatusNotFound, rr.Code)
	var errResp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rr, &errResp)
	assert.Equal(t, "Lead not found", errResp.Error)

	rr = f.do(t, "GET", "/api/leads/not-a-uuid", nil, f.AdminToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLeadHandler_Update(t *testing.T) {
	f := newFixture(t)
	own := testutil.CreateTestLead(t, f.DB, f.Employee, func(l *models.Lead) {
		l.Value = testutil.Float(500)
	})
	other := testutil.CreateTestLead(t, f.DB, f.Admin)

	t.Run("status change stamps last contact", func(t *testing.T) {
		rr := f.do(t, "PUT", "/api/leads/"+own.ID.String(), map[string]interface{}{
			"status": "contacted",
		}, f.EmployeeToken)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp dto.LeadMutationResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Lead updated successfully", resp.Message)
		assert.Equal(t, models.LeadStatusContacted, resp.Lead.Status)
		assert.NotNil(t, resp.Lead.LastContactDate)
	})

	t.Run("explicit null clears value", func(t *testing.T) {
		rr := f.do(t, "PUT", "/api/leads/"+own.ID.String(), map[string]interface{}{
			"value": nil,
		}, f.EmployeeToken)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp dto.LeadMutationResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Nil(t, resp.Lead.Value)
	})

	t.Run("employee reassignment is dropped", func(t *testing.T) {
		rr := f.do(t, "PUT", "/api/leads/"+own.ID.String(), map[string]interface{}{
			"assignedTo": f.Admin.ID.String(),
			"notes":      "called twice",
		}, f.EmployeeToken)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var resp dto.LeadMutationResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, f.Employee.ID.String(), resp.Lead.AssignedTo.ID)
		assert.Equal(t, "called twice", resp.Lead.Notes)
	})

	t.Run("someone else's lead", func(t *testing.T) {
		rr := f.do(t, "PUT", "/api/leads/"+other.ID.String(), map[string]interface{}{
			"status": "qualified",
		}, f.EmployeeToken)
		require.Equal(t, http.StatusNotFound, rr.Code)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Lead not found or unauthorized", resp.Error)
	})

	t.Run("invalid status", func(t *testing.T) {
		rr := f.do(t, "PUT", "/api/leads/"+own.ID.String(), map[string]interface{}{
			"status": "won",
		}, f.EmployeeToken)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLeadHandler_Delete(t *testing.T) {
	f := newFixture(t)
	lead := testutil.CreateTestLead(t, f.DB, f.Employee)

	t.Run("employee cannot delete", func(t *testing.T) {
		rr := f.do(t, "DELETE", "/api/leads/"+lead.ID.String(), nil, f.EmployeeToken)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		var count int64
		require.NoError(t, f.DB.Model(&models.Lead{}).Where("id = ?", lead.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count, "lead must remain")
	})

	t.Run("admin deletes", func(t *testing.T) {
		rr := f.do(t, "DELETE", "/api/leads/"+lead.ID.String(), nil, f.AdminToken)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.MessageResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Lead deleted successfully", resp.Message)

		rr = f.do(t, "GET", "/api/leads/"+lead.ID.String(), nil, f.AdminToken)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("unknown lead", func(t *testing.T) {
		rr := f.do(t, "DELETE", "/api/leads/"+lead.ID.String(), nil, f.AdminToken)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
