package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRequiredCarriesCost(t *testing.T) {
	rec := httptest.NewRecorder()

	PaymentRequired(rec, "storage quota exceeded", 0.25)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env struct {
		Success bool        `json:"success"`
		Error   string      `json:"error"`
		Data    PaymentInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "storage quota exceeded", env.Error)
	assert.True(t, env.Data.RequiresPayment)
	assert.InDelta(t, 0.25, env.Data.Cost, 1e-9)
}

func TestOKEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()

	OK(rec, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Empty(t, env.Error)
}
