package minifs_test

import (
	"testing"

	"github.com/ztygod/mini-fs"
)

func TestOpenFlagsString(t *testing.T) {
	testCases := []struct {
		flag     minifs.OpenFlags
		expected string
	}{
		{minifs.OpenRead, "READ"},
		{minifs.OpenWrite, "WRITE"},
		{minifs.OpenCreate, "CREATE"},
		{minifs.OpenTrunc, "TRUNC"},
		{minifs.OpenAppend, "APPEND"},
		{minifs.OpenRead | minifs.OpenWrite, "READ|WRITE"},
		{0, ""},
	}

	for _, tc := range testCases {
		if got := tc.flag.String(); got != tc.expected {
			t.Errorf("flag %d String() = %q, want %q", tc.flag, got, tc.expected)
		}
	}
}

func TestOpenFlagsHas(t *testing.T) {
	flags := minifs.OpenCreate | minifs.OpenWrite

	if !flags.Has(minifs.OpenCreate) {
		t.Error("flags should have OpenCreate")
	}
	if !flags.Has(minifs.OpenWrite) {
		t.Error("flags should have OpenWrite")
	}
	if flags.Has(minifs.OpenRead) {
		t.Error("flags should not have OpenRead")
	}
	if !flags.Has(minifs.OpenCreate | minifs.OpenWrite) {
		t.Error("flags should have the combination it was built from")
	}
}
