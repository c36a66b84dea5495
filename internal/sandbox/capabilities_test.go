package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCapabilities(t *testing.T) {
	tests := []struct {
		name    string
		attr    string
		want    []string
		wantErr bool
	}{
		{name: "empty allows nothing", attr: "", want: []string{}},
		{name: "single", attr: "allow-scripts", want: []string{"allow-scripts"}},
		{name: "case and spacing", attr: "  ALLOW-forms   allow-scripts ", want: []string{"allow-forms", "allow-scripts"}},
		{name: "duplicates collapse", attr: "allow-modals allow-modals", want: []string{"allow-modals"}},
		{name: "unknown token", attr: "allow-scripts allow-top-navigation", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps, err := ParseCapabilities(tt.attr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, caps.List())
		})
	}
}

func TestCapabilitiesZeroValueAllowsNothing(t *testing.T) {
	var caps Capabilities
	for capability := range knownCapabilities {
		assert.False(t, caps.Has(capability), capability)
	}
	assert.Equal(t, "null", caps.Origin("http://localhost:8000"))
}

func TestDefaultCapabilities(t *testing.T) {
	caps := DefaultCapabilities()

	assert.Equal(t,
		"allow-forms allow-modals allow-popups allow-presentation allow-same-origin allow-scripts",
		caps.String())
	assert.Equal(t, "http://localhost:8000", caps.Origin("http://localhost:8000"))

	roundTrip, err := ParseCapabilities(caps.String())
	require.NoError(t, err)
	assert.Equal(t, caps.List(), roundTrip.List())
}
