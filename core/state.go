package core

// State is a step of the login lifecycle
type State int

const (
	StateLoggedOut State = iota
	StateKeyGenerated
	StateEpochFetched
	StateNonceReady
	StateAwaitingToken
	StateTokenReceived
	StateSaltReady
	StateAddressDerived
	StateProofReady
	StateAuthorized
)

var stateNames = map[State]string{
	StateLoggedOut:      "logged_out",
	StateKeyGenerated:   "key_generated",
	StateEpochFetched:   "epoch_fetched",
	StateNonceReady:     "nonce_ready",
	StateAwaitingToken:  "awaiting_token",
	StateTokenReceived:  "token_received",
	StateSaltReady:      "salt_ready",
	StateAddressDerived: "address_derived",
	StateProofReady:     "proof_ready",
	StateAuthorized:     "authorized",
}

// String returns the snake_case name of s
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Slot names one entity of the session
type Slot int

const (
	SlotKeyPair Slot = iota
	SlotRandomness
	SlotEpoch
	SlotNonce
	SlotToken
	SlotSalt
	SlotAddress
	SlotProof
	SlotResult
)

// dependents lists the slots computed directly from a slot
var dependents = map[Slot][]Slot{
	SlotKeyPair:    {SlotNonce, SlotProof},
	SlotRandomness: {SlotNonce, SlotProof},
	SlotEpoch:      {SlotNonce, SlotProof},
	SlotNonce:      {SlotToken},
	SlotToken:      {SlotSalt, SlotAddress, SlotProof},
	SlotSalt:       {SlotAddress, SlotProof},
	SlotAddress:    {SlotResult},
	SlotProof:      {SlotResult},
}

// downstream returns slot followed by every slot transitively derived from it
func (s Slot) downstream() []Slot {
	seen := map[Slot]bool{}
	var out []Slot
	var walk func(Slot)
	walk = func(cur Slot) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		out = append(out, cur)
		for _, next := range dependents[cur] {
			walk(next)
		}
	}
	walk(s)
	return out
}

// IdentityPhase is the state of the OAuth round trip
type IdentityPhase int

const (
	PhaseIdle IdentityPhase = iota
	PhaseNonceReady
	PhaseRedirected
	PhaseTokenReceived
)

// String returns the snake_case name of p
func (p IdentityPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseNonceReady:
		return "nonce_ready"
	case PhaseRedirected:
		return "redirected"
	case PhaseTokenReceived:
		return "token_received"
	}
	return "unknown"
}

// IdentityPhase reports the OAuth phase implied by the session
func (s *Session) IdentityPhase() IdentityPhase {
	switch {
	case s.Token != nil:
		return PhaseTokenReceived
	case s.Redirected:
		return PhaseRedirected
	case s.Nonce != "":
		return PhaseNonceReady
	default:
		return PhaseIdle
	}
}

// IntentKind selects what a transaction does
type IntentKind string

const (
	IntentTransfer IntentKind = "transfer"
	IntentMintNFT  IntentKind = "mint_nft"
)

// NFTMetadata are the caller supplied mint arguments
type NFTMetadata struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url" binding:"required"`
}

// Intent describes the transaction to authorize
type Intent struct {
	Kind IntentKind
	NFT  *NFTMetadata
}

// TransferIntent returns the fixed test transfer intent
func TransferIntent() Intent {
	return Intent{Kind: IntentTransfer}
}

// MintIntent returns a mint intent for meta
func MintIntent(meta NFTMetadata) Intent {
	return Intent{Kind: IntentMintNFT, NFT: &meta}
}
