package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidator(t *testing.T) {
	ok := func(validator.FieldLevel) bool { return true }

	tests := []struct {
		name    string
		custom  map[string]validator.Func
		wantErr bool
	}{
		{name: "domain rules", custom: rules},
		{name: "empty tag", custom: map[string]validator.Func{"": ok}, wantErr: true},
		{name: "nil function", custom: map[string]validator.Func{"always": nil}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := newValidator(tt.custom)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, v)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, v)
		})
	}
}

func TestStruct(t *testing.T) {
	type entry struct {
		Title    string `validate:"notblank_trim"`
		Duration string `validate:"duration"`
	}

	tests := []struct {
		name    string
		in      entry
		wantErr bool
	}{
		{name: "valid", in: entry{Title: "Zamba", Duration: "3:00"}},
		{name: "blank title", in: entry{Title: " \t", Duration: "3:00"}, wantErr: true},
		{name: "zero duration", in: entry{Title: "Zamba", Duration: "0:00"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, Is(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf("preset name is required")
	assert.True(t, Is(err))
	assert.EqualError(t, err, "preset name is required")
}
