package domain

// TokenRequestKind distinguishes custodian token request queues.
type TokenRequestKind string

const (
	RequestMint TokenRequestKind = "MINT"
	RequestBurn TokenRequestKind = "BURN"
)

// TokenRequest is a pending EverUSD mint or burn filed by an account and
// settled by the custodian. One open request per (kind, account).
type TokenRequest struct {
	Kind    TokenRequestKind
	Account AccountID
	Amount  uint64

	CreatedAt int64 // unix seconds
}
