package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClearTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "leading mention",
			in:   "[@Bob the Bot](https://platform/user/3f2a-b114-9c00) what is X?",
			want: "what is X?",
		},
		{
			name: "no mention",
			in:   "what is X?",
			want: "what is X?",
		},
		{
			name: "whitespace only",
			in:   "   \t ",
			want: "",
		},
		{
			name: "mention only",
			in:   "[@Bob](mention/ab-12)",
			want: "",
		},
		{
			name: "trims surrounding whitespace",
			in:   "  hello there  ",
			want: "hello there",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClearTags(tt.in))
		})
	}
}
