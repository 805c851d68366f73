package domain

// EventKind is the semantic kind of a transaction event.
type EventKind string

// Event kinds known to the explorer. Any other wire value maps to EventOther.
const (
	EventChainCreate       EventKind = "ChainCreate"
	EventTokenCreate       EventKind = "TokenCreate"
	EventTokenSend         EventKind = "TokenSend"
	EventTokenReceive      EventKind = "TokenReceive"
	EventTokenMint         EventKind = "TokenMint"
	EventTokenBurn         EventKind = "TokenBurn"
	EventTokenStake        EventKind = "TokenStake"
	EventTokenClaim        EventKind = "TokenClaim"
	EventTokenEscrow       EventKind = "TokenEscrow"
	EventAddressRegister   EventKind = "AddressRegister"
	EventAddressLink       EventKind = "AddressLink"
	EventAddressUnlink     EventKind = "AddressUnlink"
	EventGasEscrow         EventKind = "GasEscrow"
	EventGasPayment        EventKind = "GasPayment"
	EventOrderCreated      EventKind = "OrderCreated"
	EventOrderCancelled    EventKind = "OrderCancelled"
	EventOrderFilled       EventKind = "OrderFilled"
	EventOrderClosed       EventKind = "OrderClosed"
	EventFeedCreate        EventKind = "FeedCreate"
	EventFileCreate        EventKind = "FileCreate"
	EventFileDelete        EventKind = "FileDelete"
	EventValidatorPropose  EventKind = "ValidatorPropose"
	EventValidatorElect    EventKind = "ValidatorElect"
	EventValidatorRemove   EventKind = "ValidatorRemove"
	EventValidatorSwitch   EventKind = "ValidatorSwitch"
	EventBrokerRequest     EventKind = "BrokerRequest"
	EventValueCreate       EventKind = "ValueCreate"
	EventValueUpdate       EventKind = "ValueUpdate"
	EventPollCreated       EventKind = "PollCreated"
	EventPollClosed        EventKind = "PollClosed"
	EventPollVote          EventKind = "PollVote"
	EventChannelCreate     EventKind = "ChannelCreate"
	EventChannelRefill     EventKind = "ChannelRefill"
	EventChannelSettle     EventKind = "ChannelSettle"
	EventLeaderboardCreate EventKind = "LeaderboardCreate"
	EventLeaderboardInsert EventKind = "LeaderboardInsert"
	EventLeaderboardReset  EventKind = "LeaderboardReset"
	EventPlatformCreate    EventKind = "PlatformCreate"
	EventChainSwap         EventKind = "ChainSwap"
	EventContractRegister  EventKind = "ContractRegister"
	EventContractDeploy    EventKind = "ContractDeploy"
	EventAddressMigration  EventKind = "AddressMigration"
	EventContractUpgrade   EventKind = "ContractUpgrade"
	EventLog               EventKind = "Log"
	EventInflation         EventKind = "Inflation"
	EventCustom            EventKind = "Custom"
	EventOther             EventKind = "Other"
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Event represents an event emitted by a transaction.
// Corresponds to events table in PostgreSQL.
type Event struct {
	TransactionHash string    // owning transaction
	Index           int       // emission order within transaction
	Kind            EventKind // classified kind
	RawKind         string    // kind as received on the wire
	Address         string    // account implicated by this event
	Contract        string    // emitting contract
	Data            string    // opaque payload (hex)
	TokenSymbol     string    // token moved by a transfer event, empty otherwise
}
