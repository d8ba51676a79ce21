package lotto

const (
	EventTypeTicketPurchased = "TicketPurchased"
	EventTypeRoundEnded      = "RoundEnded"
	EventTypeRoundStarted    = "RoundStarted"
	EventTypeClaimSubmitted  = "ClaimSubmitted"
	EventTypeFundsWithdrawn  = "FundsWithdrawn"
	EventTypeFundsReceived   = "FundsReceived"
)

const (
	AttributeKeyOwner  = "owner"
	AttributeKeyRound  = "round"
	AttributeKeyIndex  = "index"
	AttributeKeyTier   = "tier"
	AttributeKeyAmount = "amount"
	AttributeKeyFrom   = "from"
	AttributeKeyTo     = "to"
)
