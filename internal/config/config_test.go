package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, parseOrigins(" http://a.test , ,http://b.test"))
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PERMISSION_CACHE_TTL_SECONDS", "30")
	t.Setenv("MAX_DB_CONNS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 30*time.Second, cfg.PermissionTTL)
	assert.Equal(t, int32(16), cfg.MaxDBConns)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "user:7:session:abc", CacheKey.UserSessionKey(7, "abc"))
	assert.Equal(t, "permissions:g3:role:manager", CacheKey.RolePermissionsKey(3, "manager"))
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		GinMode:         "debug",
		JWTSecret:       defaultJWTSecret,
		BcryptCost:      10,
		MaxImportBytes:  1 << 20,
		LoginRatePerMin: 30,
		OverdueScan:     time.Minute,
	}
	assert.NoError(t, cfg.Validate())

	cfg.GinMode = "release"
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.BcryptCost = 40
	err := cfg.Validate()
	assert.ErrorContains(t, err, "BCRYPT_COST")
	assert.NotContains(t, err.Error(), "JWT_SECRET")
}
