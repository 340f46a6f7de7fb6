package common_test

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/common"
)

func TestParsePaginationClamps(t *testing.T) {
	cases := []struct {
		query         string
		page, perPage int
	}{
		{"", 1, 20},
		{"page=3&limit=10", 3, 10},
		{"page=-1&limit=0", 1, 20},
		{"page=abc&limit=x", 1, 20},
		{"limit=5000", 1, 100},
		{"page=" + strconv.Itoa(math.MaxInt32), 100_000, 20},
		{"page=99999999999999999999", 1, 20},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/items?"+tc.query, nil)
			page, perPage := common.ParsePagination(r, 20)
			require.Equal(t, tc.page, page)
			require.Equal(t, tc.perPage, perPage)
		})
	}
}

func TestOffsetStaysInInt32(t *testing.T) {
	require.Equal(t, 0, common.Offset(0, 50))
	require.Equal(t, 20, common.Offset(3, 10))
	off := common.Offset(math.MaxInt64, math.MaxInt64)
	require.Positive(t, off)
	require.LessOrEqual(t, off, math.MaxInt32)
}
