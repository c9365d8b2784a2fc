package repositories

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestTranslateCreateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "email unique violation",
			err:  &pq.Error{Code: "23505", Constraint: "users_email_key"},
			want: ErrEmailTaken,
		},
		{
			name: "username unique violation",
			err:  &pq.Error{Code: "23505", Constraint: "users_username_key"},
			want: ErrUsernameTaken,
		},
		{
			name: "other pq error passes through",
			err:  &pq.Error{Code: "23503", Constraint: "users_email_key"},
			want: &pq.Error{Code: "23503", Constraint: "users_email_key"},
		},
		{
			name: "non-pq error passes through",
			err:  assert.AnError,
			want: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translateCreateError(tt.err))
		})
	}
}
