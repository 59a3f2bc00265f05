package collection

import (
	"errors"
	"testing"
)

func TestLifecycleHappyPath(t *testing.T) {
	l, err := NewLifecycle(StatusPending)
	if err != nil {
		t.Fatalf("NewLifecycle: %v", err)
	}
	for _, step := range []struct {
		event string
		want  Status
	}{
		{EventAccept, StatusAccepted},
		{EventStart, StatusInProgress},
		{EventComplete, StatusCompleted},
	} {
		got, err := l.Fire(step.event)
		if err != nil {
			t.Fatalf("%s: %v", step.event, err)
		}
		if got != step.want {
			t.Fatalf("%s: want %s got %s", step.event, step.want, got)
		}
	}
}

func TestLifecycleAssignOnAcceptedIsSelfTransition(t *testing.T) {
	got, err := Next(StatusAccepted, EventAssign)
	if err != nil {
		t.Fatalf("assign on ACCEPTED: %v", err)
	}
	if got != StatusAccepted {
		t.Fatalf("want ACCEPTED got %s", got)
	}
}

func TestLifecycleTerminalStatesRejectEveryEvent(t *testing.T) {
	events := []string{EventAccept, EventAssign, EventReject, EventStart, EventComplete, EventCancel}
	for _, s := range []Status{StatusCompleted, StatusRejected, StatusCancelled} {
		for _, ev := range events {
			got, err := Next(s, ev)
			var te *ErrTransition
			if !errors.As(err, &te) {
				t.Fatalf("%s on %s: expected ErrTransition, got %v", ev, s, err)
			}
			if got != s {
				t.Fatalf("%s on %s: status moved to %s", ev, s, got)
			}
		}
	}
}

func TestLifecycleInvalidFromPending(t *testing.T) {
	for _, ev := range []string{EventStart, EventComplete} {
		if _, err := Next(StatusPending, ev); err == nil {
			t.Fatalf("%s from PENDING should fail", ev)
		}
	}
	if _, err := Next(StatusInProgress, EventAccept); err == nil {
		t.Fatalf("accept from IN_PROGRESS should fail")
	}
}

func TestSourcesFor(t *testing.T) {
	cases := map[string][]Status{
		EventAccept:   {StatusPending},
		EventAssign:   {StatusPending, StatusAccepted},
		EventStart:    {StatusAccepted},
		EventComplete: {StatusInProgress},
		EventCancel:   {StatusPending, StatusAccepted, StatusInProgress},
	}
	for ev, want := range cases {
		got := SourcesFor(ev)
		if len(got) != len(want) {
			t.Fatalf("%s: want %v got %v", ev, want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("%s: want %v got %v", ev, want, got)
			}
		}
	}
}

func TestNewLifecycleUnknownStatus(t *testing.T) {
	if _, err := NewLifecycle(Status("LOST")); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}
