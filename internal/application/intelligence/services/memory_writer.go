package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sectorwars/aria-core/internal/domain/memory"
	"github.com/sectorwars/aria-core/internal/domain/security"
	"github.com/sectorwars/aria-core/internal/domain/shared"
)

const memoryRecordAction = "memory_record"

// MemoryWriter stores memory records on behalf of command handlers. It owns
// the full write path: normalize the payload, hash it for deduplication,
// encrypt it, audit the call, and persist the record.
//
// The audit entry is written before the mutation. If the audit log cannot
// be appended, the memory is not stored. A failed store after a successful
// audit gets a second, best-effort entry marking the error.
type MemoryWriter struct {
	memoryRepo memory.Repository
	audit      *AuditTrail
	codec      memory.PayloadCodec
	clock      shared.Clock
	decayRate  float64
}

// NewMemoryWriter creates a MemoryWriter. A non-positive decayRate falls
// back to the default daily decay.
func NewMemoryWriter(
	memoryRepo memory.Repository,
	audit *AuditTrail,
	codec memory.PayloadCodec,
	clock shared.Clock,
	decayRate float64,
) *MemoryWriter {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if decayRate <= 0 {
		decayRate = memory.DefaultDecayRate
	}
	return &MemoryWriter{
		memoryRepo: memoryRepo,
		audit:      audit,
		codec:      codec,
		clock:      clock,
		decayRate:  decayRate,
	}
}

// Remember stores one memory. When the player already holds a memory with
// identical content, nothing is written and the existing record is returned
// with stored=false. A hash match over different content is a corruption
// signal and fails hard rather than merging distinct memories.
func (w *MemoryWriter) Remember(
	ctx context.Context,
	playerID shared.PlayerID,
	kind memory.Kind,
	payload map[string]interface{},
	importance float64,
) (*memory.Record, bool, error) {
	normalized, err := memory.NormalizePayload(payload)
	if err != nil {
		return nil, false, fmt.Errorf("failed to normalize memory payload: %w", err)
	}

	contentHash := memory.ContentHash(kind, normalized)

	existing, err := w.memoryRepo.FindByHash(ctx, playerID, contentHash)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check for duplicate memory: %w", err)
	}
	if existing != nil {
		return w.resolveExisting(ctx, playerID, kind, normalized, contentHash, existing)
	}

	if err := w.audit.Record(ctx, playerID, memoryRecordAction, string(kind), security.OutcomeOK, "stored", security.AnomalyNone); err != nil {
		return nil, false, err
	}

	ciphertext, err := w.codec.Encrypt(normalized)
	if err != nil {
		w.audit.RecordBestEffort(ctx, playerID, memoryRecordAction, string(kind), security.OutcomeError, "encrypt failed", security.AnomalyNone)
		return nil, false, fmt.Errorf("failed to encrypt memory payload: %w", err)
	}

	record, err := memory.NewRecord(
		playerID,
		kind,
		ciphertext,
		importance,
		w.decayRate,
		contentHash,
		w.clock.Now(),
	)
	if err != nil {
		w.audit.RecordBestEffort(ctx, playerID, memoryRecordAction, string(kind), security.OutcomeError, "validation failed", security.AnomalyNone)
		return nil, false, fmt.Errorf("failed to create memory record: %w", err)
	}

	if err := w.memoryRepo.Save(ctx, record); err != nil {
		w.audit.RecordBestEffort(ctx, playerID, memoryRecordAction, string(kind), security.OutcomeError, "store failed", security.AnomalyNone)
		return nil, false, fmt.Errorf("failed to persist memory record: %w", err)
	}

	return record, true, nil
}

// resolveExisting distinguishes a true duplicate from a hash collision by
// comparing the stored plaintext against the incoming one
func (w *MemoryWriter) resolveExisting(
	ctx context.Context,
	playerID shared.PlayerID,
	kind memory.Kind,
	normalized []byte,
	contentHash string,
	existing *memory.Record,
) (*memory.Record, bool, error) {
	storedPlaintext, err := w.codec.Decrypt(existing.Ciphertext())
	if err != nil {
		return nil, false, fmt.Errorf("failed to decrypt stored memory for duplicate check: %w", err)
	}

	if !bytes.Equal(storedPlaintext, normalized) {
		w.audit.RecordBestEffort(ctx, playerID, memoryRecordAction, string(kind), security.OutcomeError, "content hash collision", security.AnomalyNone)
		return nil, false, &memory.ErrHashCollision{
			PlayerID:    playerID.String(),
			ContentHash: contentHash,
		}
	}

	if err := w.audit.Record(ctx, playerID, memoryRecordAction, string(kind), security.OutcomeOK, "duplicate ignored", security.AnomalyNone); err != nil {
		return nil, false, err
	}

	return existing, false, nil
}
