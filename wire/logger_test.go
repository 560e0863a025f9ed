package wire

import (
	"bytes"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger_NilRestoresNop(t *testing.T) {
	defer SetLogger(nil)

	SetLogger(nil)
	if Logger() == nil {
		t.Fatal("Logger() returned nil after SetLogger(nil)")
	}
	Logger().Warn("discarded")
}

func TestLogger_WritePassFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	msg := &flipping{plan: []func(e *Encoder) error{
		func(e *Encoder) error { return e.WriteVarintField(1, 1) },
		func(e *Encoder) error { return e.WriteVarintField(1, 300) },
	}}
	s, err := SerializerFor(msg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Serialize(msg, new(bytes.Buffer)); !errors.Is(err, ErrSerializerMismatch) {
		t.Fatalf("got %v, want ErrSerializerMismatch", err)
	}

	entries := logs.FilterMessage("write pass failed").All()
	if len(entries) != 1 {
		t.Fatalf("got %d warn entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["size"] != int64(2) || fields["written"] != int64(3) {
		t.Errorf("fields = %v", fields)
	}
}
