package cilium_test

import (
	"errors"
	"testing"

	"github.com/wippyai/cilium"
	cerrors "github.com/wippyai/cilium/errors"
	"github.com/wippyai/cilium/internal/asmtest"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"minimal assembly", asmtest.Minimal(), nil},
		{"plain PE", asmtest.PlainPE(), cerrors.ErrMissingCLIHeader},
		{"empty", nil, cerrors.ErrMalformedContainer},
		{"text", []byte("MZ but not really a PE image"), cerrors.ErrMalformedContainer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asm, err := cilium.Parse(tt.data)
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Fatalf("Parse = %v, want %v", err, tt.want)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			name, err := asm.Name()
			if err != nil || name != "<Module>" {
				t.Errorf("Name = %q, %v", name, err)
			}
		})
	}
}
