package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStoreStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "APPROVED", "REJECTED"} {
		t.Run(s, func(t *testing.T) {
			st, err := ParseStoreStatus(s)
			require.NoError(t, err)
			assert.Equal(t, StoreStatus(s), st)
		})
	}

	_, err := ParseStoreStatus("approved")
	assert.Error(t, err)
	_, err = ParseStoreStatus("")
	assert.Error(t, err)
}

func TestPagination_HasNext(t *testing.T) {
	assert.True(t, Pagination{Page: 1, TotalPages: 2}.HasNext())
	assert.False(t, Pagination{Page: 2, TotalPages: 2}.HasNext())
	assert.False(t, Pagination{Page: 1, TotalPages: 0}.HasNext())
}

func TestUpdateStorePayload_Empty(t *testing.T) {
	assert.True(t, UpdateStorePayload{}.Empty())
	name := "x"
	assert.False(t, UpdateStorePayload{Name: &name}.Empty())
}
