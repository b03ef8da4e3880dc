package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("MEDSTOCK_TEST_GET_ENV", "value")

	assert.Equal(t, "value", GetEnv("MEDSTOCK_TEST_GET_ENV", "default"))
	assert.Equal(t, "default", GetEnv("MEDSTOCK_TEST_NOT_SET", "default"))
}

func TestRequireEnv(t *testing.T) {
	t.Setenv("MEDSTOCK_TEST_REQUIRE_ENV", "required")

	assert.Equal(t, "required", RequireEnv("MEDSTOCK_TEST_REQUIRE_ENV"))
	assert.Panics(t, func() { RequireEnv("MEDSTOCK_TEST_DEFINITELY_MISSING") })
}

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		envValue       string
		want           string
		productionLike bool
	}{
		{"development", EnvDevelopment, false},
		{"STAGING", EnvStaging, true},
		{"Production", EnvProduction, true},
		{"", EnvDevelopment, false},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("MEDSTOCK_SERVER_ENVIRONMENT", tt.envValue)

			assert.Equal(t, tt.want, GetEnvironment())
			assert.Equal(t, tt.productionLike, IsProductionLike())
		})
	}
}
