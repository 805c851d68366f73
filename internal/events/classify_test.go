package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"phantasma-explorer/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.EventKind
	}{
		{"TokenSend", domain.EventTokenSend},
		{"tokenreceive", domain.EventTokenReceive},
		{" TOKENMINT ", domain.EventTokenMint},
		{"TokenBurn", domain.EventTokenBurn},
		{"GasPayment", domain.EventGasPayment},
		{"Custom", domain.EventCustom},
		{"3", domain.EventTokenSend},
		{"4", domain.EventTokenReceive},
		{"0", domain.EventOther},
		{"-1", domain.EventOther},
		{"9999", domain.EventOther},
		{"Other", domain.EventOther},
		{"SomethingNew", domain.EventOther},
		{"", domain.EventOther},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw))
		})
	}
}

func TestClassify_OrdinalsMatchNames(t *testing.T) {
	for i, k := range ordinals[1:] {
		assert.Equal(t, k, Classify(k.String()), "ordinal %d", i+1)
	}
}

func TestIsTransferEvent(t *testing.T) {
	for _, k := range []domain.EventKind{
		domain.EventTokenSend, domain.EventTokenReceive, domain.EventTokenMint, domain.EventTokenBurn,
		domain.EventTokenStake, domain.EventTokenClaim, domain.EventTokenEscrow,
	} {
		assert.True(t, IsTransferEvent(k), k)
	}
	for _, k := range []domain.EventKind{
		domain.EventOther, domain.EventTokenCreate, domain.EventGasEscrow, domain.EventGasPayment, domain.EventChainCreate,
	} {
		assert.False(t, IsTransferEvent(k), k)
	}
}
