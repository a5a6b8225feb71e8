package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/snapcheck/internal/common"
)

func newProvider() *StaticProvider {
	return NewStaticProvider([]common.TokenConfig{
		{Token: "t-ada", UserID: "teacher-1", Name: "Ms. Ada"},
		{Token: "t-bob", UserID: "student-1", Name: "Bob", Role: "student"},
		{Token: "", UserID: "ignored"},
	}, nil)
}

func TestAuthenticate(t *testing.T) {
	p := newProvider()

	id, err := p.Authenticate(context.Background(), "Bearer t-ada")
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", id.UserID)
	assert.True(t, id.IsTeacher())

	_, err = p.Authenticate(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = p.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestSession_Lifecycle(t *testing.T) {
	p := newProvider()
	s, err := OpenSession(context.Background(), p, "t-ada")
	require.NoError(t, err)
	require.True(t, s.Active())
	require.NoError(t, s.RequireTeacher())

	ended := 0
	s.OnEnd(func() { ended++ })

	s.Close()
	s.Close()
	assert.False(t, s.Active())
	assert.Equal(t, 1, ended)
	assert.Empty(t, p.subs, "close must unsubscribe")
	assert.ErrorIs(t, s.RequireTeacher(), common.ErrUnauthorized)
}

func TestSession_Revoked(t *testing.T) {
	p := newProvider()
	s, err := OpenSession(context.Background(), p, "t-ada")
	require.NoError(t, err)

	ended := false
	s.OnEnd(func() { ended = true })

	assert.Equal(t, 1, p.Revoke("teacher-1"))
	assert.True(t, ended)
	assert.False(t, s.Active())

	_, err = p.Authenticate(context.Background(), "t-ada")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	s.Close()
}

func TestSession_StudentCannotGrade(t *testing.T) {
	p := newProvider()
	s, err := OpenSession(context.Background(), p, "t-bob")
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.RequireTeacher(), common.ErrForbidden)
}
