package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensordash/alertd/internal/alerting"
)

func TestGetSettings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v2/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"audioEnabled":true,"autoHideEnabled":true}`, rec.Body.String())
}

func TestUpdateSettings(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantCode     int
		wantAudio    bool
		wantAutoHide bool
	}{
		{"audio off", `{"audioEnabled":false}`, http.StatusOK, false, true},
		{"auto hide off", `{"autoHideEnabled":false}`, http.StatusOK, true, false},
		{"both", `{"audioEnabled":false,"autoHideEnabled":false}`, http.StatusOK, false, false},
		{"empty", `{}`, http.StatusBadRequest, true, true},
		{"malformed", `{"audioEnabled":`, http.StatusBadRequest, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(http.MethodPut, "/api/v2/settings", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)

			cfg := env.svc.Engine.Config()
			assert.Equal(t, tt.wantAudio, cfg.AudioEnabled)
			assert.Equal(t, tt.wantAutoHide, cfg.AutoHideEnabled)

			if tt.wantCode == http.StatusOK {
				assert.Equal(t, 1, env.persister.calls)
				assert.Equal(t, tt.wantAudio, env.persister.audio)
				assert.Equal(t, tt.wantAutoHide, env.persister.autoHide)
			} else {
				assert.Zero(t, env.persister.calls)
			}
		})
	}
}

func TestUpdateSettings_PersistFailureKeepsValues(t *testing.T) {
	env := newTestEnv(t)
	env.persister.err = errors.New("disk full")

	rec := env.do(http.MethodPut, "/api/v2/settings", `{"audioEnabled":false}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, env.svc.Engine.Config().AudioEnabled)
}

func TestSetDevice(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPut, "/api/v2/device", `{"deviceId":" dev-2 ","deviceName":"Barn"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var status alerting.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.DeviceSelected)
	assert.Equal(t, alerting.Device{ID: "dev-2", Name: "Barn"}, status.Device)

	rec = env.do(http.MethodGet, "/api/v2/device", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deviceId":"dev-2","deviceName":"Barn"}`, rec.Body.String())
}

func TestGetHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v2/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status alerting.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Healthy)

	// Without a device there is nothing to watch.
	env.do(http.MethodPut, "/api/v2/device", `{"deviceId":""}`)
	rec = env.do(http.MethodGet, "/api/v2/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
