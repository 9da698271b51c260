package action

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultConstructors(t *testing.T) {
	assert.Equal(t, StatusOK, Ok().Status)
	assert.False(t, Ok().Failed())

	w := Warn("flaky test retried")
	assert.Equal(t, StatusWarning, w.Status)
	assert.Equal(t, []string{"flaky test retried"}, w.Warnings)
	assert.False(t, w.Failed())
	assert.Equal(t, StatusOK, Warn().Status)

	boom := errors.New("boom")
	f := Fail(boom)
	assert.True(t, f.Failed())
	assert.ErrorIs(t, f.Err, boom)

	assert.Error(t, Fail(nil).Err)
	assert.EqualError(t, Failf("exit %d", 2).Err, "exit 2")

	assert.Equal(t, Ok(), FromError(nil))
	assert.True(t, FromError(boom).Failed())
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "ok", Ok().String())
	assert.Equal(t, "ok with warnings: a; b", Warn("a", "b").String())
	assert.Equal(t, "error: boom", Fail(errors.New("boom")).String())
}

func TestFunc(t *testing.T) {
	var got Env
	a := Func(func(_ context.Context, env Env) Result {
		got = env
		return Ok()
	})
	res := a.Invoke(context.Background(), Env{Path: "build/compile"})
	assert.Equal(t, Ok(), res)
	assert.Equal(t, "build/compile", got.Path)
}
