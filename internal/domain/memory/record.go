package memory

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sectorwars/aria-core/internal/domain/shared"
)

// Kind classifies what a memory record captures
type Kind string

const (
	KindLocationVisit    Kind = "location-visit"
	KindPriceObservation Kind = "price-observation"
	KindTradeOutcome     Kind = "trade-outcome"
	KindSecurityEvent    Kind = "security-event"
)

// IsValid checks whether the kind is one of the known values
func (k Kind) IsValid() bool {
	switch k {
	case KindLocationVisit, KindPriceObservation, KindTradeOutcome, KindSecurityEvent:
		return true
	}
	return false
}

// VisibilityFloor is the effective strength below which a record is treated
// as practically invisible. The record is never physically deleted on decay;
// only an explicit forget or purge removes it.
const VisibilityFloor = 0.05

// DefaultDecayRate is the per-day exponential decay constant applied when a
// caller does not supply one.
const DefaultDecayRate = 0.001

// Record is an immutable, player-scoped memory of one observation or event.
// The payload is stored encrypted; importance and decay rate are fixed at
// creation and never mutated afterwards. All aging is computed at read time.
type Record struct {
	id             string
	playerID       shared.PlayerID
	kind           Kind
	ciphertext     []byte
	importance     float64
	decayRate      float64
	contentHash    string
	createdAt      time.Time
	accessCount    int
	lastAccessedAt *time.Time
}

// NewRecord creates a memory record with validation. The ciphertext must
// already be encrypted by the caller's codec; the content hash must be
// computed over the plaintext via ContentHash.
func NewRecord(
	playerID shared.PlayerID,
	kind Kind,
	ciphertext []byte,
	importance float64,
	decayRate float64,
	contentHash string,
	createdAt time.Time,
) (*Record, error) {
	if playerID.IsZero() {
		return nil, &ErrInvalidRecord{Field: "player_id", Reason: "player_id cannot be zero"}
	}
	if !kind.IsValid() {
		return nil, &ErrInvalidRecord{Field: "kind", Reason: "unknown memory kind: " + string(kind)}
	}
	if len(ciphertext) == 0 {
		return nil, &ErrInvalidRecord{Field: "payload", Reason: "payload cannot be empty"}
	}
	if importance < 0 || importance > 1 {
		return nil, &ErrInvalidRecord{Field: "importance", Reason: "importance must be in [0,1]"}
	}
	if decayRate < 0 {
		return nil, &ErrInvalidRecord{Field: "decay_rate", Reason: "decay_rate cannot be negative"}
	}
	if contentHash == "" {
		return nil, &ErrInvalidRecord{Field: "content_hash", Reason: "content_hash cannot be empty"}
	}
	if createdAt.IsZero() {
		return nil, &ErrInvalidRecord{Field: "created_at", Reason: "created_at cannot be zero"}
	}

	return &Record{
		id:          uuid.New().String(),
		playerID:    playerID,
		kind:        kind,
		ciphertext:  ciphertext,
		importance:  importance,
		decayRate:   decayRate,
		contentHash: contentHash,
		createdAt:   createdAt,
	}, nil
}

// ReconstructRecord rebuilds a record from persistence, including access
// metadata. Used only by repositories.
func ReconstructRecord(
	id string,
	playerID shared.PlayerID,
	kind Kind,
	ciphertext []byte,
	importance float64,
	decayRate float64,
	contentHash string,
	createdAt time.Time,
	accessCount int,
	lastAccessedAt *time.Time,
) (*Record, error) {
	r, err := NewRecord(playerID, kind, ciphertext, importance, decayRate, contentHash, createdAt)
	if err != nil {
		return nil, err
	}
	r.id = id
	r.accessCount = accessCount
	r.lastAccessedAt = lastAccessedAt
	return r, nil
}

// Getters (immutable entity - no setters)

func (r *Record) ID() string {
	return r.id
}

func (r *Record) PlayerID() shared.PlayerID {
	return r.playerID
}

func (r *Record) Kind() Kind {
	return r.kind
}

func (r *Record) Ciphertext() []byte {
	return r.ciphertext
}

func (r *Record) Importance() float64 {
	return r.importance
}

func (r *Record) DecayRate() float64 {
	return r.decayRate
}

func (r *Record) ContentHash() string {
	return r.contentHash
}

func (r *Record) CreatedAt() time.Time {
	return r.createdAt
}

func (r *Record) AccessCount() int {
	return r.accessCount
}

func (r *Record) LastAccessedAt() *time.Time {
	return r.lastAccessedAt
}

// EffectiveStrength computes the record's current weight as
// importance * exp(-decayRate * ageDays). The stored importance is never
// rewritten; strength is always derived from the creation constants.
func (r *Record) EffectiveStrength(now time.Time) float64 {
	age := now.Sub(r.createdAt)
	if age < 0 {
		age = 0
	}
	days := age.Hours() / 24
	return r.importance * math.Exp(-r.decayRate*days)
}

// IsVisible reports whether the record's effective strength is still above
// the visibility floor at the given time.
func (r *Record) IsVisible(now time.Time) bool {
	return r.EffectiveStrength(now) >= VisibilityFloor
}
