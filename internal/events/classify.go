// Package events classifies raw transaction events and extracts token
// movement details from their payloads.
package events

import (
	"strconv"
	"strings"

	"phantasma-explorer/internal/domain"
)

// ordinals lists kinds in wire enum order. Ordinal 0 is the unknown kind.
var ordinals = []domain.EventKind{
	domain.EventOther,
	domain.EventChainCreate,
	domain.EventTokenCreate,
	domain.EventTokenSend,
	domain.EventTokenReceive,
	domain.EventTokenMint,
	domain.EventTokenBurn,
	domain.EventTokenStake,
	domain.EventTokenClaim,
	domain.EventTokenEscrow,
	domain.EventAddressRegister,
	domain.EventAddressLink,
	domain.EventAddressUnlink,
	domain.EventGasEscrow,
	domain.EventGasPayment,
	domain.EventOrderCreated,
	domain.EventOrderCancelled,
	domain.EventOrderFilled,
	domain.EventOrderClosed,
	domain.EventFeedCreate,
	domain.EventFileCreate,
	domain.EventFileDelete,
	domain.EventValidatorPropose,
	domain.EventValidatorElect,
	domain.EventValidatorRemove,
	domain.EventValidatorSwitch,
	domain.EventBrokerRequest,
	domain.EventValueCreate,
	domain.EventValueUpdate,
	domain.EventPollCreated,
	domain.EventPollClosed,
	domain.EventPollVote,
	domain.EventChannelCreate,
	domain.EventChannelRefill,
	domain.EventChannelSettle,
	domain.EventLeaderboardCreate,
	domain.EventLeaderboardInsert,
	domain.EventLeaderboardReset,
	domain.EventPlatformCreate,
	domain.EventChainSwap,
	domain.EventContractRegister,
	domain.EventContractDeploy,
	domain.EventAddressMigration,
	domain.EventContractUpgrade,
	domain.EventLog,
	domain.EventInflation,
	domain.EventCustom,
}

var byName = func() map[string]domain.EventKind {
	m := make(map[string]domain.EventKind, len(ordinals))
	for _, k := range ordinals[1:] {
		m[strings.ToLower(string(k))] = k
	}
	return m
}()

var transferKinds = map[domain.EventKind]bool{
	domain.EventTokenSend:    true,
	domain.EventTokenReceive: true,
	domain.EventTokenMint:    true,
	domain.EventTokenBurn:    true,
	domain.EventTokenStake:   true,
	domain.EventTokenClaim:   true,
	domain.EventTokenEscrow:  true,
}

// Classify maps a wire event kind to a known kind. Names match
// case-insensitively, integers are read as enum ordinals, and anything
// else is EventOther.
func Classify(raw string) domain.EventKind {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.EventOther
	}
	if k, ok := byName[strings.ToLower(s)]; ok {
		return k
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 && n < len(ordinals) {
		return ordinals[n]
	}
	return domain.EventOther
}

// IsTransferEvent reports whether kind moves token value.
func IsTransferEvent(kind domain.EventKind) bool {
	return transferKinds[kind]
}
