package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext_Version(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		ctx  *Context
		want string
	}{
		{"nil context", nil, UnknownValue},
		{"valid version", NewContext("1.0.0", "2026-01-01", "abc123"), "1.0.0"},
		{"pre-release tag", NewContext("1.0.0-beta.1", "", ""), "1.0.0-beta.1"},
		{"build metadata", NewContext("1.0.0+build.123", "", ""), "1.0.0+build.123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ctx.Version())
		})
	}
}

func TestContext_Fields(t *testing.T) {
	t.Parallel()
	c := NewContext("2.1.0", "2026-03-04", "deadbeef")
	assert.Equal(t, "2026-03-04", c.BuildDate())
	assert.Equal(t, "deadbeef", c.Commit())
	assert.Equal(t, "precivox-images@2.1.0", c.Release())

	var empty *Context
	assert.Equal(t, UnknownValue, empty.BuildDate())
	assert.Equal(t, UnknownValue, empty.Commit())
	assert.Equal(t, "precivox-images@unknown", empty.Release())
}

func TestContext_EmptyMetadata(t *testing.T) {
	t.Parallel()
	c := NewContext("", "", "")
	assert.Equal(t, UnknownValue, c.BuildDate())
	assert.Equal(t, UnknownValue, c.Commit())
	assert.NotEmpty(t, c.Version())
}
