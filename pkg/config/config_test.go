package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.AgentTimeout)
	assert.Equal(t, time.Hour, cfg.TransferTokenExpiry)
	assert.Equal(t, int64(DefaultBackupUploadPartSize), cfg.BackupUploadPartSize)
}

func TestLoadClampsBrokenPartSize(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "zero", value: "0"},
		{name: "negative", value: "-1"},
		{name: "garbage", value: "five megabytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BACKUP_UPLOAD_PART_SIZE", tt.value)

			cfg := Load()
			assert.Equal(t, int64(DefaultBackupUploadPartSize), cfg.BackupUploadPartSize)
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG", "true")
	t.Setenv("AGENT_TIMEOUT", "10s")
	t.Setenv("BACKUP_UPLOAD_PART_SIZE", "1048576")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 10*time.Second, cfg.AgentTimeout)
	assert.Equal(t, int64(1048576), cfg.BackupUploadPartSize)
}
