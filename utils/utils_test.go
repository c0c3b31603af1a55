package utils_test

import (
	"errors"
	"testing"

	"github.com/storeops/opsrelay/utils"

	"github.com/stretchr/testify/assert"
)

func TestFlattenErrors(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")

	assert.NoError(t, utils.FlattenErrors(nil))
	assert.NoError(t, utils.FlattenErrors([]error{}))

	assert.Same(t, errA, utils.FlattenErrors([]error{errA}))

	err := utils.FlattenErrors([]error{errA, errB})
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestStr(t *testing.T) {
	assert.Equal(t, "", utils.Str(nil))
	assert.Equal(t, `{"count":5}`, utils.Str([]byte(`{"count":5}`)))
}
