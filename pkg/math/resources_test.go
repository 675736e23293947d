package math

import "testing"

import "github.com/stretchr/testify/assert"

func TestParseMemory(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1Ki", 1024, false},
		{"1Mi", 1048576, false},
		{"1Gi", 1073741824, false},
		{"1K", 1000, false},
		{"512", 512, false},
		{"nope", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMemory(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCPU(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"500m", 0.5, false},
		{"2", 2.0, false},
		{"1k", 1000.0, false},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCPU(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimateRolloutIterations(t *testing.T) {
	tests := []struct {
		name                      string
		replicas                  int
		maxSurge, maxUnavailable float64
		want                      int
	}{
		{"two replicas default surge", 2, 0.25, 0.25, 4},
		{"single replica", 1, 0.25, 0.25, 2},
		{"ten replicas half surge", 10, 0.5, 0.5, 10},
		{"zero surge falls back to defaults", 2, 0, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateRolloutIterations(tt.replicas, tt.maxSurge, tt.maxUnavailable)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimateWaitSeconds(t *testing.T) {
	// 512MB image, 3 replicas, 30s readiness delay, default 25/25 surge:
	// pull=90, delay=45, iterations=ceil(3/0.5)=6 -> (90+45)*6=810.
	got := EstimateWaitSeconds(512, 3, 30, 0.25, 0.25)
	assert.Equal(t, 810, got)

	// more replicas must estimate a longer wait, not a constant one.
	more := EstimateWaitSeconds(512, 12, 30, 0.25, 0.25)
	assert.Greater(t, more, got)
}
