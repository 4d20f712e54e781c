package worker

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/gateway"
)

type fakeSource struct {
	emis map[string]core.EMI
	txns map[string]core.Transaction
}

func (f *fakeSource) GetEMI(_ context.Context, id string) (core.EMI, error) {
	e, ok := f.emis[id]
	if !ok {
		return core.EMI{}, gateway.ErrNotFound
	}
	return e, nil
}

func (f *fakeSource) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	t, ok := f.txns[id]
	if !ok {
		return core.Transaction{}, gateway.ErrNotFound
	}
	return t, nil
}

type mirrorCall struct {
	kind   string // "emi", "transaction", "tombstone"
	op     string
	entity string
	id     string
}

type fakeMirror struct {
	calls []mirrorCall
}

func (f *fakeMirror) AppendEMI(_ context.Context, op, _ string, e core.EMI) error {
	f.calls = append(f.calls, mirrorCall{kind: "emi", op: op, id: e.ID})
	return nil
}

func (f *fakeMirror) AppendTransaction(_ context.Context, op, _ string, t core.Transaction) error {
	f.calls = append(f.calls, mirrorCall{kind: "transaction", op: op, id: t.ID})
	return nil
}

func (f *fakeMirror) AppendTombstone(_ context.Context, entity, id, _ string) error {
	f.calls = append(f.calls, mirrorCall{kind: "tombstone", entity: entity, id: id})
	return nil
}

func msg(entity, op, id string) *amqp.RecordChangeMessage {
	return &amqp.RecordChangeMessage{
		Entity:    entity,
		Op:        op,
		ID:        id,
		UserID:    "user-1",
		Timestamp: time.Now(),
	}
}

func TestHandleChangeMirrorsEMI(t *testing.T) {
	source := &fakeSource{emis: map[string]core.EMI{
		"emi-1": {ID: "emi-1", Name: "Home Loan"},
	}}
	mirror := &fakeMirror{}
	w := NewSyncWorker(source, mirror)

	if err := w.HandleChange(context.Background(), msg("emi", "created", "emi-1")); err != nil {
		t.Fatalf("HandleChange() error = %v", err)
	}

	if len(mirror.calls) != 1 {
		t.Fatalf("expected 1 mirror call, got %d", len(mirror.calls))
	}
	call := mirror.calls[0]
	if call.kind != "emi" || call.op != "created" || call.id != "emi-1" {
		t.Errorf("unexpected mirror call: %+v", call)
	}
}

func TestHandleChangeDeletionWritesTombstone(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewSyncWorker(&fakeSource{}, mirror)

	if err := w.HandleChange(context.Background(), msg("transaction", "deleted", "txn-1")); err != nil {
		t.Fatalf("HandleChange() error = %v", err)
	}

	if len(mirror.calls) != 1 || mirror.calls[0].kind != "tombstone" {
		t.Fatalf("expected tombstone call, got %+v", mirror.calls)
	}
	if mirror.calls[0].entity != "transaction" || mirror.calls[0].id != "txn-1" {
		t.Errorf("unexpected tombstone: %+v", mirror.calls[0])
	}
}

func TestHandleChangeMissingRecordFallsBackToTombstone(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewSyncWorker(&fakeSource{}, mirror)

	if err := w.HandleChange(context.Background(), msg("emi", "updated", "gone")); err != nil {
		t.Fatalf("HandleChange() error = %v", err)
	}

	if len(mirror.calls) != 1 || mirror.calls[0].kind != "tombstone" {
		t.Fatalf("expected tombstone for vanished record, got %+v", mirror.calls)
	}
}

func TestHandleChangeIgnoresBudgetAndUnknownEntities(t *testing.T) {
	mirror := &fakeMirror{}
	w := NewSyncWorker(&fakeSource{}, mirror)

	for _, entity := range []string{"budget", "mystery"} {
		if err := w.HandleChange(context.Background(), msg(entity, "updated", "x")); err != nil {
			t.Fatalf("HandleChange(%s) error = %v", entity, err)
		}
	}
	if len(mirror.calls) != 0 {
		t.Fatalf("expected no mirror calls, got %+v", mirror.calls)
	}
}
