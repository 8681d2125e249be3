package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelfTestWordDisplacement(t *testing.T) {
	require.NoError(t, SelfTestWordDisplacement())
}
