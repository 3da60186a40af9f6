package idempotency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		ctx           func(t *testing.T) context.Context
		expectedKey   string
		expectedFound bool
	}{
		{
			name:          "key set",
			ctx:           func(t *testing.T) context.Context { return WithKey(t.Context(), "bulk-update-0000001") },
			expectedKey:   "bulk-update-0000001",
			expectedFound: true,
		},
		{
			name: "key absent",
			ctx:  func(t *testing.T) context.Context { return t.Context() },
		},
		{
			name: "empty key",
			ctx:  func(t *testing.T) context.Context { return WithKey(t.Context(), "") },
		},
		{
			name: "last key wins",
			ctx: func(t *testing.T) context.Context {
				return WithKey(WithKey(t.Context(), "bulk-update-0000001"), "bulk-update-0000002")
			},
			expectedKey:   "bulk-update-0000002",
			expectedFound: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			key, found := FromContext(tc.ctx(t))

			require.Equal(t, tc.expectedFound, found)
			require.Equal(t, tc.expectedKey, key)
		})
	}
}
