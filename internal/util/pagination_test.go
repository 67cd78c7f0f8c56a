package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, size          int
		wantFrom, wantLimit int
	}{
		{page: 1, size: 20, wantFrom: 0, wantLimit: 20},
		{page: 3, size: 20, wantFrom: 40, wantLimit: 20},
		{page: 0, size: 0, wantFrom: 0, wantLimit: DefaultPageSize},
		{page: -2, size: 500, wantFrom: 0, wantLimit: DefaultPageSize},
		{page: 2, size: MaxPageSize, wantFrom: MaxPageSize, wantLimit: MaxPageSize},
	}

	for _, tt := range tests {
		from, limit := Calculate(tt.page, tt.size)
		assert.Equal(t, tt.wantFrom, from, "page=%d size=%d", tt.page, tt.size)
		assert.Equal(t, tt.wantLimit, limit, "page=%d size=%d", tt.page, tt.size)
	}
}
