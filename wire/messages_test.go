package wire_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"lanchat/chaterr"
	"lanchat/wire"
)

func TestSayRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"ascii", "hello there"},
		{"unicode", "héllo wörld 日本語"},
		{"trimmed-on-send", "  padded  "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clean, err := wire.ValidateMessage(tc.msg)
			if err != nil {
				t.Fatalf("ValidateMessage: %v", err)
			}
			frame, err := wire.EncodeSay(clean)
			if err != nil {
				t.Fatalf("EncodeSay: %v", err)
			}
			r := bytes.NewReader(frame)
			op, err := wire.ReadOpcode(r)
			if err != nil {
				t.Fatalf("ReadOpcode: %v", err)
			}
			if op != wire.OpSay {
				t.Fatalf("opcode = %v, want SAY", op)
			}
			got, err := wire.ReadSay(r)
			if err != nil {
				t.Fatalf("ReadSay: %v", err)
			}
			if diff := cmp.Diff(clean, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSayDispatchRoundTrip(t *testing.T) {
	name, msg := "alice", "good morning, everyone"
	frame, err := wire.EncodeSayDispatch(name, msg)
	if err != nil {
		t.Fatalf("EncodeSayDispatch: %v", err)
	}
	r := bytes.NewReader(frame)
	if _, err := wire.ReadOpcode(r); err != nil {
		t.Fatalf("ReadOpcode: %v", err)
	}
	gotName, gotMsg, err := wire.ReadSayDispatch(r)
	if err != nil {
		t.Fatalf("ReadSayDispatch: %v", err)
	}
	if gotName != name || gotMsg != msg {
		t.Errorf("got (%q, %q), want (%q, %q)", gotName, gotMsg, name, msg)
	}
}

func TestSetNameRoundTrip(t *testing.T) {
	clean, err := wire.ValidateName(" bob ")
	if err != nil {
		t.Fatalf("ValidateName: %v", err)
	}
	if clean != "bob" {
		t.Fatalf("ValidateName = %q, want %q", clean, "bob")
	}
	frame, err := wire.EncodeSetName(clean)
	if err != nil {
		t.Fatalf("EncodeSetName: %v", err)
	}
	r := bytes.NewReader(frame)
	if _, err := wire.ReadOpcode(r); err != nil {
		t.Fatalf("ReadOpcode: %v", err)
	}
	got, err := wire.ReadSetName(r)
	if err != nil {
		t.Fatalf("ReadSetName: %v", err)
	}
	if got != clean {
		t.Errorf("got %q, want %q", got, clean)
	}
}

func TestValidateMessageRejectsEmpty(t *testing.T) {
	if _, err := wire.ValidateMessage("   "); !errors.Is(err, chaterr.ErrInvalidArgument) {
		t.Errorf("ValidateMessage(whitespace) error = %v, want ErrInvalidArgument", err)
	}
}

func TestValidateMessageRejectsOversize(t *testing.T) {
	huge := strings.Repeat("x", 40000) // 80000 encoded bytes, exceeds the 65535 cap
	if _, err := wire.ValidateMessage(huge); !errors.Is(err, chaterr.ErrInvalidArgument) {
		t.Errorf("ValidateMessage(huge) error = %v, want ErrInvalidArgument", err)
	}
}

func TestValidateNameRejectsOversize(t *testing.T) {
	huge := strings.Repeat("x", 300)
	if _, err := wire.ValidateName(huge); !errors.Is(err, chaterr.ErrInvalidArgument) {
		t.Errorf("ValidateName(huge) error = %v, want ErrInvalidArgument", err)
	}
}
