package domain

// PaymentOrder is created against a held reservation immediately before the
// checkout UI takes over. Amount is in minor currency units (paise).
type PaymentOrder struct {
	ID          string
	Amount      int64
	Currency    string
	HoldGroupID string
	Notes       string
}

type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "success"
	OutcomeFailure       OutcomeKind = "failure"
	OutcomeUserCancelled OutcomeKind = "user_cancelled"
)

// PaymentOutcome is the single result of one checkout launch.
// PaymentRef is set only for OutcomeSuccess, Reason only for OutcomeFailure.
type PaymentOutcome struct {
	Kind       OutcomeKind
	PaymentRef string
	Reason     string
}
