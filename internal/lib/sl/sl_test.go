package sl_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/entitlement-core/internal/lib/sl"
)

func TestErr(t *testing.T) {
	attr := sl.Err(errors.New("something went wrong"))

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("something went wrong"), attr.Value)
}

func TestErr_NilError(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, "<nil>", sl.Err(nil).Value.String())
	})
}

func TestOp(t *testing.T) {
	attr := sl.Op("payment.Approve")
	assert.Equal(t, "op", attr.Key)
	assert.Equal(t, "payment.Approve", attr.Value.String())
}
