package internal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("APEX27_API_KEY", "secret")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://api.apex27.co.uk", cfg.Apex27BaseURL)
	assert.Equal(t, 30*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, DraftBackendSQLite, cfg.DraftBackend)
	assert.Equal(t, 2*time.Second, cfg.DraftTimeout)
	assert.Equal(t, "local", cfg.StorageProvider)
}

func TestNewConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing api key",
			env:     map[string]string{"APEX27_API_KEY": ""},
			wantErr: "APEX27_API_KEY",
		},
		{
			name: "proxy mode needs no key",
			env:  map[string]string{"APEX27_API_KEY": "", "APEX27_VIA_PROXY": "true"},
		},
		{
			name:    "unknown draft backend",
			env:     map[string]string{"APEX27_API_KEY": "k", "DRAFT_BACKEND": "etcd"},
			wantErr: "DRAFT_BACKEND",
		},
		{
			name:    "postgres without url",
			env:     map[string]string{"APEX27_API_KEY": "k", "DRAFT_BACKEND": "postgres", "DATABASE_URL": ""},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "r2 without bucket",
			env:     map[string]string{"APEX27_API_KEY": "k", "STORAGE_PROVIDER": "r2", "R2_ACCOUNT_ID": "a", "R2_ACCESS_KEY_ID": "b", "R2_SECRET_ACCESS_KEY": "c", "R2_BUCKET_NAME": ""},
			wantErr: "R2_BUCKET_NAME",
		},
		{
			name:    "unknown storage",
			env:     map[string]string{"APEX27_API_KEY": "k", "STORAGE_PROVIDER": "gcs"},
			wantErr: "STORAGE_PROVIDER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewConfig()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewProxyConfig(t *testing.T) {
	t.Setenv("APEX27_API_KEY", "")
	_, err := NewProxyConfig()
	assert.Error(t, err)

	t.Setenv("APEX27_API_KEY", "k")
	t.Setenv("PROXY_BASE64_BODY", "true")
	cfg, err := NewProxyConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Base64Body)
	assert.Equal(t, 8888, cfg.Port)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "production", "warn").Info("hidden")
	assert.Empty(t, buf.String())

	NewLogger(&buf, "production", "info").Info("shown", "k", "v")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))

	buf.Reset()
	NewLogger(&buf, "development", "debug").Debug("text")
	assert.Contains(t, buf.String(), "msg=text")
}

func TestLogWriter_Tee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, cleanup, err := LogWriter(path)
	require.NoError(t, err)

	NewLogger(w, "production", "info").Info("teed")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "teed")
}
