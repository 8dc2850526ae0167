package session

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashesConsumedOnce(t *testing.T) {
	sess := &Session{ID: "abc"}
	sess.FlashSuccess("created")
	sess.FlashError("oops")

	success, errs := sess.ConsumeFlashes()
	assert.Equal(t, []string{"created"}, success)
	assert.Equal(t, []string{"oops"}, errs)

	success, errs = sess.ConsumeFlashes()
	assert.Empty(t, success)
	assert.Empty(t, errs)
}

func TestReturnToRoundTrip(t *testing.T) {
	sess := &Session{ID: "abc"}
	sess.ReturnTo = "/listings/new"

	assert.Equal(t, "/listings/new", sess.ConsumeReturnTo())
	assert.Equal(t, "", sess.ConsumeReturnTo())
}

func TestLoginRotatesSessionID(t *testing.T) {
	sess := &Session{ID: "before"}
	sess.Login("user-1", "asehgal")

	assert.NotEqual(t, "before", sess.ID)
	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, "asehgal", sess.Username)

	authenticated := sess.ID
	sess.Logout()
	assert.NotEqual(t, authenticated, sess.ID)
	assert.False(t, sess.IsAuthenticated())
}

func TestCookieCodecRoundTrip(t *testing.T) {
	codec := NewCodec("top-secret")

	value, err := codec.Encode("session-123")
	require.NoError(t, err)

	sid, err := codec.Decode(value)
	require.NoError(t, err)
	assert.Equal(t, "session-123", sid)
}

func TestCookieCodecRejectsTampering(t *testing.T) {
	codec := NewCodec("top-secret")
	value, err := codec.Encode("session-123")
	require.NoError(t, err)

	_, err = codec.Decode(value + "x")
	assert.Error(t, err)

	other := NewCodec("different-secret")
	_, err = other.Decode(value)
	assert.Error(t, err)

	_, err = codec.Decode("not-a-token")
	assert.Error(t, err)
}

func TestSetAndClearCookie(t *testing.T) {
	codec := NewCodec("top-secret")

	w := httptest.NewRecorder()
	require.NoError(t, codec.SetCookie(w, "session-123"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	sid, err := codec.Decode(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "session-123", sid)

	w = httptest.NewRecorder()
	codec.ClearCookie(w)
	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
