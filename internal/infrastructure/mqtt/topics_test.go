package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{Prefix: "home/blink/"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"status", topics.Status(), "home/blink/status"},
		{"network state", topics.NetworkState(42), "home/blink/state/network/42"},
		{"camera state", topics.CameraState(7), "home/blink/state/camera/7"},
		{"network command", topics.NetworkCommand(42), "home/blink/command/network/42"},
		{"camera command", topics.CameraCommand(7), "home/blink/command/camera/7"},
		{"event", topics.Event("refresh"), "home/blink/event/refresh"},
		{"all commands", topics.AllCommands(), "home/blink/command/+/+"},
		{"default prefix", Topics{}.Status(), "blinksync/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	topics := Topics{Prefix: "blinksync"}

	tests := []struct {
		topic    string
		wantKind string
		wantID   int64
		wantOK   bool
	}{
		{"blinksync/command/network/42", "network", 42, true},
		{"blinksync/command/camera/7", "camera", 7, true},
		{"blinksync/command/siren/7", "", 0, false},
		{"blinksync/command/camera/abc", "", 0, false},
		{"blinksync/state/camera/7", "", 0, false},
		{"other/command/camera/7", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			kind, id, ok := topics.ParseCommand(tt.topic)
			if ok != tt.wantOK || kind != tt.wantKind || id != tt.wantID {
				t.Errorf("ParseCommand(%q) = (%q, %d, %v), want (%q, %d, %v)",
					tt.topic, kind, id, ok, tt.wantKind, tt.wantID, tt.wantOK)
			}
		})
	}
}
