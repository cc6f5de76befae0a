package schema

import (
	"encoding/json"
	"testing"

	// Packages
	assert "github.com/stretchr/testify/assert"
)

////////////////////////////////////////////////////////////////////////////////
// EVENT TESTS

func Test_ProgressEvent_Percent(t *testing.T) {
	assert := assert.New(t)

	event := ProgressEvent(50, 200)
	assert.Equal(UploadProgressEvent, event.Type)
	assert.Equal(float64(25), event.Percent)

	// Unknown total yields no percentage
	assert.Equal(float64(0), ProgressEvent(50, 0).Percent)

	// Overshoot is clamped
	assert.Equal(float64(100), ProgressEvent(300, 200).Percent)
}

func Test_Event_Terminal(t *testing.T) {
	assert := assert.New(t)

	assert.False(InitiatedEvent("u1").Terminal())
	assert.False(ProgressEvent(1, 2).Terminal())
	assert.True(CompletedEvent("etag", 10).Terminal())
	assert.True(ErrorEvent("boom").Terminal())
}

func Test_Event_JSON(t *testing.T) {
	assert := assert.New(t)

	data, err := json.Marshal(CompletedEvent("etag-1", 42))
	assert.NoError(err)
	assert.JSONEq(`{"type":"completed","content_fingerprint":"etag-1","size":42}`, string(data))

	data, err = json.Marshal(InitiatedEvent("u1"))
	assert.NoError(err)
	assert.JSONEq(`{"type":"initiated","session_id":"u1"}`, string(data))
}

////////////////////////////////////////////////////////////////////////////////
// IMAGE PATH TESTS

func Test_IsImagePath(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsImagePath("photos/cat.jpg"))
	assert.True(IsImagePath("photos/cat.JPEG"))
	assert.True(IsImagePath("a.png"))
	assert.True(IsImagePath("a.webp"))
	assert.False(IsImagePath("report.pdf"))
	assert.False(IsImagePath("noextension"))
	assert.False(IsImagePath(""))
}
