package command

import "testing"

func TestInputOptions(t *testing.T) {
	in := NewInput().
		WithArg("name", "world").
		WithOption("timing", true).
		WithOption("polls", 3).
		WithOption("label", "").
		WithOption("verbose", "yes")

	if in.Arg("name") != "world" {
		t.Errorf("Arg(name) = %q", in.Arg("name"))
	}
	if !in.BoolOption("timing") {
		t.Error("BoolOption(timing) should be true")
	}
	if in.BoolOption("verbose") {
		t.Error(`BoolOption("yes") should be false, ParseBool rejects it`)
	}
	if in.IntOption("polls", 1) != 3 {
		t.Errorf("IntOption(polls) = %d, want 3", in.IntOption("polls", 1))
	}
	if in.IntOption("missing", 9) != 9 {
		t.Error("IntOption should fall back to default")
	}
	if in.HasOption("label") {
		t.Error("empty string option should not count as present")
	}
	if !in.HasOption("polls") {
		t.Error("HasOption(polls) should be true")
	}
}

func TestNilInput(t *testing.T) {
	var in *Input
	if in.HasOption("x") || in.Arg("x") != "" || in.Summary() != "" {
		t.Error("nil input should behave as empty")
	}
}

func TestSummaryMasksSecrets(t *testing.T) {
	in := NewInput().
		WithArg("target", "db").
		WithOption("auth-token", "hunter2").
		WithOption("timing", true)

	got := in.Summary()
	want := "target=db --auth-token=*** --timing=true"
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
