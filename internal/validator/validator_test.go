package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/tooltrack-backend/internal/model"
)

func TestValidateRow(t *testing.T) {
	assert.Nil(t, ValidateRow(&model.MasterRecordRequest{Code: "C-01", Name: "Acme"}))

	verr := ValidateRow(&model.MasterRecordRequest{Name: "Acme"})
	require.NotNil(t, verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "code", verr.Fields[0].Field)
	assert.Contains(t, verr.Fields[0].Message, "required")
}

func TestValidateRow_ItemNegativeQuantity(t *testing.T) {
	verr := ValidateRow(&model.ItemRequest{Code: "T-1", Name: "Drill", Unit: "pcs", TotalQuantity: -1})
	require.NotNil(t, verr)
	assert.Equal(t, "total_quantity", verr.Fields[0].Field)
}
