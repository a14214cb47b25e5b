package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatch_ApplyTo(t *testing.T) {
	old := "2024-01-01"

	tests := []struct {
		name  string
		patch Patch[string]
		want  *string
	}{
		{name: "keep", patch: Keep[string](), want: &old},
		{name: "set", patch: Set("2025-05-05"), want: strPtr("2025-05-05")},
		{name: "clear", patch: Clear[string](), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := &old
			tt.patch.ApplyTo(&dst)
			assert.Equal(t, tt.want, dst)
		})
	}
}

func TestPatch_ZeroValueKeeps(t *testing.T) {
	var p Patch[int]
	assert.True(t, p.IsKeep())
	_, ok := p.Value()
	assert.False(t, ok)

	v, ok := Set(3).Value()
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.True(t, Clear[int]().IsClear())
}

func strPtr(s string) *string { return &s }
