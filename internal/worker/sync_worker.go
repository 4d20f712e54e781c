// Package worker consumes the record change feed and mirrors each change
// to the backup spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/gateway"
)

// RecordMirror is what the worker needs from a mirror target.
type RecordMirror interface {
	AppendEMI(ctx context.Context, op, userID string, e core.EMI) error
	AppendTransaction(ctx context.Context, op, userID string, t core.Transaction) error
	AppendTombstone(ctx context.Context, entity, id, userID string) error
}

// RecordSource fetches current record bodies by id. Satisfied by the
// SQLite repository.
type RecordSource interface {
	GetEMI(ctx context.Context, id string) (core.EMI, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
}

type SyncWorker struct {
	source RecordSource
	mirror RecordMirror
}

func NewSyncWorker(source RecordSource, mirror RecordMirror) *SyncWorker {
	return &SyncWorker{source: source, mirror: mirror}
}

// HandleChange processes one change-feed message. Deletions and records
// that vanished before the worker caught up are mirrored as tombstones.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	slog.InfoContext(ctx, "Processing record change",
		"entity", msg.Entity,
		"op", msg.Op,
		"id", msg.ID)

	if msg.Op == "deleted" {
		return w.mirror.AppendTombstone(ctx, msg.Entity, msg.ID, msg.UserID)
	}

	switch msg.Entity {
	case "emi":
		e, err := w.source.GetEMI(ctx, msg.ID)
		if errors.Is(err, gateway.ErrNotFound) {
			// Deleted between publish and consume.
			return w.mirror.AppendTombstone(ctx, msg.Entity, msg.ID, msg.UserID)
		}
		if err != nil {
			return fmt.Errorf("get emi from storage: %w", err)
		}
		return w.mirror.AppendEMI(ctx, msg.Op, msg.UserID, e)

	case "transaction":
		t, err := w.source.GetTransaction(ctx, msg.ID)
		if errors.Is(err, gateway.ErrNotFound) {
			return w.mirror.AppendTombstone(ctx, msg.Entity, msg.ID, msg.UserID)
		}
		if err != nil {
			return fmt.Errorf("get transaction from storage: %w", err)
		}
		return w.mirror.AppendTransaction(ctx, msg.Op, msg.UserID, t)

	case "budget":
		// Budget changes carry no record body worth mirroring row by row.
		return nil

	default:
		slog.WarnContext(ctx, "Unknown change entity, dropping", "entity", msg.Entity, "id", msg.ID)
		return nil
	}
}
