package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30d", want: 30 * 24 * time.Hour},
		{in: " 1d ", want: 24 * time.Hour},
		{in: "15m", want: 15 * time.Minute},
		{in: "xd", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"2d","b":1000}`), &v))
	assert.Equal(t, 48*time.Hour, v.A.Duration)
	assert.Equal(t, time.Microsecond, v.B.Duration)

	require.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))

	out, err := json.Marshal(Duration{Duration: time.Minute})
	require.NoError(t, err)
	assert.JSONEq(t, `"1m0s"`, string(out))
}

func TestDuration_YAML(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 30s\nb: 5\n"), &v))
	assert.Equal(t, 30*time.Second, v.A.Duration)
	assert.Equal(t, time.Duration(5), v.B.Duration)

	require.Error(t, yaml.Unmarshal([]byte("a: [1, 2]\n"), &v))
}
