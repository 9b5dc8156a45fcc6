package fake

import "testing"

func TestCallRecorderFiltersByMethod(t *testing.T) {
	t.Parallel()

	var r CallRecorder
	r.record("Start", "api")
	r.record("Stop", "db")
	r.record("Start", "db")

	all := r.Calls("")
	if len(all) != 3 {
		t.Fatalf("Calls(\"\") = %d entries, want 3", len(all))
	}
	if all[0].Method != "Start" || all[0].Args[0] != "api" {
		t.Errorf("first call = %+v", all[0])
	}

	starts := r.Calls("Start")
	if len(starts) != 2 || starts[1].Args[0] != "db" {
		t.Errorf("Calls(Start) = %+v", starts)
	}
	if got := r.Calls("Restart"); got != nil {
		t.Errorf("Calls(Restart) = %+v, want nil", got)
	}
}

func TestCallRecorderReset(t *testing.T) {
	t.Parallel()

	var r CallRecorder
	r.record("Start", "api")
	r.Reset()
	if got := r.Calls(""); len(got) != 0 {
		t.Errorf("calls after Reset = %+v", got)
	}
}
