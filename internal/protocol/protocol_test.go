package protocol

import (
	"errors"
	"testing"
)

func TestDecodeSongList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"ordered", `{"songs":["b.mp3","a.mp3"]}`, []string{"b.mp3", "a.mp3"}, false},
		{"empty list", `{"songs":[]}`, []string{}, false},
		{"null songs", `{"songs":null}`, nil, true},
		{"missing songs", `{"other":1}`, nil, true},
		{"non-string entry", `{"songs":["a",2]}`, nil, true},
		{"not json", `songs: a`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSongList([]byte(tt.input))
			if tt.wantErr {
				var pe *Error
				if !errors.As(err, &pe) {
					t.Fatalf("DecodeSongList() error = %v, want *Error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeSongList() error = %v", err)
			}
			if len(got.Songs) != len(tt.want) {
				t.Fatalf("Songs = %v, want %v", got.Songs, tt.want)
			}
			for i := range tt.want {
				if got.Songs[i] != tt.want[i] {
					t.Errorf("Songs[%d] = %q, want %q", i, got.Songs[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"play", `{"action":"PLAY","payload":{"title":"a.mp3","size":10,"duration":3.5}}`, false},
		{"new track", `{"action":"NEW_TRACK","payload":{"title":"a.mp3","size":10,"duration":3.5}}`, false},
		{"unknown action", `{"action":"STOP","payload":{"title":"a.mp3"}}`, true},
		{"missing title", `{"action":"PLAY","payload":{}}`, true},
		{"negative duration", `{"action":"SEEK","payload":{"title":"a","duration":-1}}`, true},
		{"garbage", `[1,2`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncode_MessageShape(t *testing.T) {
	data, err := Encode(Message{
		Action:  ActionPause,
		Payload: AudioInformation{Title: "a.mp3", Size: 5, Duration: 1.5},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"action":"PAUSE","payload":{"title":"a.mp3","size":5,"duration":1.5}}`
	if string(data) != want {
		t.Errorf("Encode() = %s, want %s", data, want)
	}
}
