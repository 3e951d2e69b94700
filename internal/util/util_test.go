package util

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"watchlearn/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Email: "ada@example.com", Role: model.Lecturer}
	user.ID = 42

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, model.Lecturer, claims.Role)

	_, err = ParseJWT(token, "other-secret")
	require.Error(t, err)
}

func TestParseJWT_Expired(t *testing.T) {
	user := &model.User{Email: "ada@example.com", Role: model.Student}
	token, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret")
	require.Error(t, err)
}

func TestParseProbe(t *testing.T) {
	out := `{"streams":[{"codec_type":"audio"},{"codec_type":"video","width":1280,"height":720}],
		"format":{"duration":"12.5","size":"2048","format_name":"mov,mp4,m4a"}}`
	info, err := parseProbe(out, 1)
	require.NoError(t, err)
	assert.Equal(t, &VideoInfo{Duration: 12.5, Width: 1280, Height: 720, Format: "mov", Size: 2048}, info)

	info, err = parseProbe(`{"format":{}}`, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(99), info.Size)
	assert.Equal(t, "unknown", info.Format)

	_, err = parseProbe("not json", 0)
	require.Error(t, err)
}

func TestValidateMimeType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	mime, err := ValidateMimeType(bytes.NewReader(png), []string{MimeImage})
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = ValidateMimeType(bytes.NewReader([]byte("plain text")), []string{MimeImage})
	require.ErrorIs(t, err, ErrInvalidFileType)

	assert.True(t, HasExtension("clip.MP4", AllowedVideoExtensions))
	assert.False(t, HasExtension("notes.txt", AllowedVideoExtensions))
}

func TestResponseEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorWithData(c, http.StatusForbidden, "banned", gin.H{"reason": "spam"})

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, map[string]interface{}{"reason": "spam"}, resp.Data)
}
