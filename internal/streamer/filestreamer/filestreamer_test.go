package filestreamer

import (
	"testing"
	"time"

	"github.com/sandfs/mdlog/internal/log_service"
)

func TestFilestreamer_ResetThenAppendThenRead(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 1024, "", log_service.Discard)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if !s.IsActive() {
		t.Fatal("expected IsActive() after Reset()")
	}

	if err := s.AppendEntry([]byte("hello")); err != nil {
		t.Fatalf("AppendEntry() error = %v", err)
	}
	if err := s.AppendEntry([]byte("world")); err != nil {
		t.Fatalf("AppendEntry() error = %v", err)
	}

	if !s.IsReadable() {
		t.Fatal("expected IsReadable() after appends")
	}

	data, ok, err := s.TryReadEntry()
	if err != nil || !ok {
		t.Fatalf("TryReadEntry() = %q, %v, %v", data, ok, err)
	}
	if string(data) != "hello" {
		t.Fatalf("TryReadEntry() = %q, want %q", data, "hello")
	}

	data, ok, err = s.TryReadEntry()
	if err != nil || !ok || string(data) != "world" {
		t.Fatalf("second TryReadEntry() = %q, %v, %v", data, ok, err)
	}

	if s.IsReadable() {
		t.Fatal("expected IsReadable() false once caught up")
	}
	if _, ok, _ := s.TryReadEntry(); ok {
		t.Fatal("expected TryReadEntry() to report no more entries")
	}
}

func TestFilestreamer_RecoverAfterReopen(t *testing.T) {
	dir := t.TempDir()

	s1, err := New(dir, 1024, "", log_service.Discard)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s1.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if err := s1.AppendEntry([]byte("persisted")); err != nil {
		t.Fatalf("AppendEntry() error = %v", err)
	}
	s1.Flush()

	s2, err := New(dir, 1024, "", log_service.Discard)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var recoverErr error
	s2.Recover(func(err error) { recoverErr = err })
	if recoverErr != nil {
		t.Fatalf("Recover() error = %v", recoverErr)
	}
	if !s2.IsActive() {
		t.Fatal("expected IsActive() after Recover()")
	}
	if s2.WritePos() != s1.WritePos() {
		t.Fatalf("WritePos() after recover = %d, want %d", s2.WritePos(), s1.WritePos())
	}

	data, ok, err := s2.TryReadEntry()
	if err != nil || !ok || string(data) != "persisted" {
		t.Fatalf("TryReadEntry() after recover = %q, %v, %v", data, ok, err)
	}
}

func TestFilestreamer_PreferredPlacementSurvivesRecover(t *testing.T) {
	dir := t.TempDir()

	s1, err := New(dir, 1024, "rank-3", log_service.Discard)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s1.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if got := s1.PreferredPlacement(); got != "rank-3" {
		t.Fatalf("PreferredPlacement() = %q, want %q", got, "rank-3")
	}
	s1.Flush()

	s2, err := New(dir, 1024, "", log_service.Discard)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var recoverErr error
	s2.Recover(func(err error) { recoverErr = err })
	if recoverErr != nil {
		t.Fatalf("Recover() error = %v", recoverErr)
	}
	if got := s2.PreferredPlacement(); got != "rank-3" {
		t.Fatalf("PreferredPlacement() after recover = %q, want %q (head record, not the constructor arg)", got, "rank-3")
	}
}

func TestFilestreamer_WaitForReadableFiresOnAppend(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 1024, "", log_service.Discard)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	fired := make(chan struct{})
	s.WaitForReadable(func() { close(fired) })

	if err := s.AppendEntry([]byte("x")); err != nil {
		t.Fatalf("AppendEntry() error = %v", err)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("expected WaitForReadable callback to fire after AppendEntry")
	}
}
