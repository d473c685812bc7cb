package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"chargedesk/internal/apperror"
	"chargedesk/internal/model"
	"chargedesk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func publicTypesRouter(svc service.TransactionTypeService) *gin.Engine {
	r := gin.New()
	NewTransactionTypeHandler(svc).RegisterPublicRoutes(&r.RouterGroup)
	return r
}

func TestTransactionTypeHandler_ListPublic(t *testing.T) {
	svc := new(MockTransactionTypeService)
	flat := "100.00"
	pct := "2.00"
	svc.On("ListActiveWithRanges", mock.Anything).Return([]service.TransactionTypeWithRanges{{
		ID:   uuid.NewString(),
		Code: "SIMBA_TO_SIMBA",
		Name: "Simba to Simba",
		ChargeRanges: []service.PublicChargeRange{{
			ID:            uuid.NewString(),
			MinAmount:     "500.00",
			MaxAmount:     "10000.00",
			ChargeDetails: service.FeeDetails{Type: model.FeeFlat, FlatAmount: &flat},
			TaxDetails:    service.FeeDetails{Type: model.FeePercentage, Percentage: &pct},
		}},
	}}, nil)

	w, env := doJSON(t, publicTypesRouter(svc), http.MethodGet, "/v1/transaction-types", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", env.Status)

	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	ranges := items[0]["charge_ranges"].([]interface{})
	require.Len(t, ranges, 1)

	charge := ranges[0].(map[string]interface{})["charge_details"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"type": "flat", "flat_amount": "100.00"}, charge)
	tax := ranges[0].(map[string]interface{})["tax_details"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"type": "percentage", "percentage": "2.00"}, tax)
}

func TestTransactionTypeHandler_CreatePublic(t *testing.T) {
	svc := new(MockTransactionTypeService)
	want := service.CreateTransactionTypeRequest{Name: "Simba to Simba", Code: "SIMBA_TO_SIMBA"}
	svc.On("Create", mock.Anything, (*uuid.UUID)(nil), want).Return(&service.TransactionTypeResponse{
		ID:       uuid.NewString(),
		Code:     want.Code,
		Name:     want.Name,
		IsActive: true,
	}, nil)

	w, env := doJSON(t, publicTypesRouter(svc), http.MethodPost, "/v1/transaction-types",
		`{"name":"Simba to Simba","code":"SIMBA_TO_SIMBA"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "success", env.Status)

	var got service.TransactionTypeResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "SIMBA_TO_SIMBA", got.Code)
	svc.AssertExpectations(t)
}

func TestTransactionTypeHandler_CreatePublicValidation(t *testing.T) {
	svc := new(MockTransactionTypeService)

	w, env := doJSON(t, publicTypesRouter(svc), http.MethodPost, "/v1/transaction-types", `{"code":"X"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, []string{"The name field is required."}, env.Errors["name"])
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransactionTypeHandler_CreatePublicDuplicate(t *testing.T) {
	svc := new(MockTransactionTypeService)
	svc.On("Create", mock.Anything, (*uuid.UUID)(nil), mock.Anything).Return(nil, apperror.Validation(map[string][]string{
		"code": {"The code has already been taken."},
	}))

	w, env := doJSON(t, publicTypesRouter(svc), http.MethodPost, "/v1/transaction-types",
		`{"name":"Again","code":"SIMBA_TO_SIMBA"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, []string{"The code has already been taken."}, env.Errors["code"])
}
