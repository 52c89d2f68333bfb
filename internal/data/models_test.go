package data

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_CalculateMetadata(t *testing.T) {
	tests := []struct {
		name  string
		total int
		f     Filters
		want  Metadata
	}{
		{
			name:  "exact_multiple",
			total: 40,
			f:     Filters{Page: 2, Limit: 20},
			want:  Metadata{Page: 2, Limit: 20, Total: 40, TotalPages: 2},
		},
		{
			name:  "partial_last_page",
			total: 41,
			f:     Filters{Page: 1, Limit: 20},
			want:  Metadata{Page: 1, Limit: 20, Total: 41, TotalPages: 3},
		},
		{
			name:  "empty_result_set",
			total: 0,
			f:     Filters{Page: 1, Limit: 20},
			want:  Metadata{Page: 1, Limit: 20, Total: 0, TotalPages: 0},
		},
		{
			name:  "clamped_limit_reported",
			total: 250,
			f:     Filters{Page: 1, Limit: 1000},
			want:  Metadata{Page: 1, Limit: MaxPageSize, Total: 250, TotalPages: 3},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, calculateMetadata(tc.total, tc.f))
		})
	}
}

func Test_CalculateMetadata_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(0, 1_000_000).Draw(t, "total")
		f := Filters{
			Page:  rapid.IntRange(1, 10_000).Draw(t, "page"),
			Limit: rapid.IntRange(1, 10_000).Draw(t, "limit"),
		}

		md := calculateMetadata(total, f)

		if md.TotalPages != int(math.Ceil(float64(total)/float64(md.Limit))) {
			t.Fatalf("totalPages = %d, want ceil(%d/%d)", md.TotalPages, total, md.Limit)
		}
		if md.Limit > MaxPageSize {
			t.Fatalf("limit %d exceeds hard cap", md.Limit)
		}
	})
}

func Test_StorageError_WrapsOriginal(t *testing.T) {
	original := errors.New("connection refused")
	err := storageErr("books.get", original)

	var storage *StorageError
	assert.ErrorAs(t, err, &storage)
	assert.ErrorIs(t, err, original)
	assert.Contains(t, err.Error(), "books.get")
}

func Test_StorageErr_PassesThroughNotFound(t *testing.T) {
	assert.ErrorIs(t, storageErr("books.get", ErrRecordNotFound), ErrRecordNotFound)

	var storage *StorageError
	assert.False(t, errors.As(storageErr("books.get", ErrRecordNotFound), &storage))
}

func Test_RoleAtLeast(t *testing.T) {
	assert.True(t, RoleAtLeast(RoleOwner, RoleEditor))
	assert.True(t, RoleAtLeast(RoleEditor, RoleEditor))
	assert.False(t, RoleAtLeast(RoleViewer, RoleEditor))
	assert.False(t, RoleAtLeast("", RoleViewer))
	assert.False(t, RoleAtLeast("SUPERUSER", RoleViewer)) // unknown roles rank lowest
}
