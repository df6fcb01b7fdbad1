package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrips(t *testing.T) {
	exe := &Executable{
		CompilerVersion:  "novac-0.1.0",
		EntrypointOffset: 42,
		Strings:          []string{"hello", "", "world"},
		Instructions:     []byte{1, 2, 3, 4, 5},
	}
	buf := Encode(exe)
	got, ok := Decode(buf)
	require.True(t, ok)
	require.Equal(t, exe, got)
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	exe := &Executable{CompilerVersion: "x", Instructions: []byte{9}}
	buf := Encode(exe)
	buf[0] = 0
	buf[1] = 0
	_, ok := Decode(buf)
	require.False(t, ok)
}

func TestDecodeRejectsTruncation(t *testing.T) {
	exe := &Executable{
		CompilerVersion: "novac-0.1.0",
		Strings:         []string{"abc"},
		Instructions:    []byte{1, 2, 3},
	}
	buf := Encode(exe)
	for cut := len(buf) - 1; cut >= 0; cut -= 7 {
		_, ok := Decode(buf[:cut])
		require.False(t, ok)
	}
}

func TestDecodeEmptyBufferFails(t *testing.T) {
	_, ok := Decode(nil)
	require.False(t, ok)
}
