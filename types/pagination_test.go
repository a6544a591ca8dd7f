package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationHelperDefaults(t *testing.T) {
	p := NewPaginationHelper(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 0, p.Offset)
}

func TestNewPaginationHelperSnapsToAllowedSizes(t *testing.T) {
	p := NewPaginationHelper(1, 30)
	assert.Equal(t, 20, p.PageSize)

	p = NewPaginationHelper(1, 5)
	assert.Equal(t, 10, p.PageSize)

	p = NewPaginationHelper(1, 500)
	assert.Equal(t, 100, p.PageSize)
}

func TestPaginationOffset(t *testing.T) {
	p := NewPaginationHelper(3, 50)
	assert.Equal(t, 100, p.Offset)
}

func TestBuildResponseTotalPages(t *testing.T) {
	p := NewPaginationHelper(1, 20)
	resp := p.BuildResponse([]int{1, 2, 3}, 41)
	assert.Equal(t, 41, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
}
