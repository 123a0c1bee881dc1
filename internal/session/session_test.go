package session

import "testing"

func TestParams_Validate(t *testing.T) {
	valid := Params{Encoder: "h264", InputSize: "384", MaxRes: "1080", TargetFPS: "30"}

	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"valid", valid, false},
		{"hevc at 2160", Params{Encoder: "hevc", InputSize: "518", MaxRes: "2160", TargetFPS: "60"}, false},
		{"missing encoder", Params{InputSize: "384", MaxRes: "1080", TargetFPS: "30"}, true},
		{"unknown encoder", Params{Encoder: "av1", InputSize: "384", MaxRes: "1080", TargetFPS: "30"}, true},
		{"unknown input size", Params{Encoder: "h264", InputSize: "999", MaxRes: "1080", TargetFPS: "30"}, true},
		{"blank fps", Params{Encoder: "h264", InputSize: "384", MaxRes: "1080", TargetFPS: "  "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSession_ReplaceSemantics(t *testing.T) {
	s := New("clip.mp4", 12.3)
	s = s.WithParams(Params{Encoder: "h264", InputSize: "384", MaxRes: "1080", TargetFPS: "30"})

	replaced := New("other.mp4", 4.5)
	if replaced.Params != (Params{}) {
		t.Errorf("new session carried old params: %+v", replaced.Params)
	}
	if !s.Active() {
		t.Error("session with filename should be active")
	}
	if (Session{}).Active() {
		t.Error("zero session should not be active")
	}
}
