package screener

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dropaudit/internal/model"
)

const addrA = "0xab5801a7d398351b8be11c439e05c5b3259aec9b"

func TestScreenBatch_Bounds(t *testing.T) {
	s := NewStub()
	ctx := context.Background()

	_, err := s.ScreenBatch(ctx, nil, 1)
	require.Error(t, err)

	big := make([]string, 51)
	for i := range big {
		big[i] = fmt.Sprintf("0x%040x", i+1)
	}
	_, err = s.ScreenBatch(ctx, big, 1)
	require.Error(t, err)

	// Exactly at the cap is fine.
	res, err := s.ScreenBatch(ctx, big[:50], 1)
	require.NoError(t, err)
	assert.Len(t, res, 50)
}

func TestScreenBatch_RejectsMalformedAddress(t *testing.T) {
	s := NewStub()
	_, err := s.ScreenBatch(context.Background(), []string{"0x123"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
}

func TestScreenBatch_PlaceholderShape(t *testing.T) {
	s := NewStub()
	res, err := s.ScreenBatch(context.Background(), []string{addrA}, 0)
	require.NoError(t, err)
	require.Len(t, res, 1)

	assert.Equal(t, addrA, res[0].Address)
	assert.Equal(t, DefaultChainID, res[0].ChainID)
	assert.Equal(t, model.RiskLow, res[0].Risk)
	assert.Equal(t, []string{"unscored"}, res[0].Labels)
	assert.NotNil(t, res[0].Flags)
}

func TestStatus(t *testing.T) {
	st := NewStub().Status()
	assert.Equal(t, "stub", st.Provider)
	assert.True(t, st.Operational)
}
