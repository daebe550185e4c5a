// File: registry/parse_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSocketName(t *testing.T) {
	cases := []struct {
		name     string
		wantName string
		wantSlot uint32
		wantOK   bool
	}{
		{"widget.0.drv", "widget", 0, true},
		{"widget.12.drv", "widget", 12, true},
		{"widget..drv", "", 0, false},
		{".0.drv", "", 0, false},
		{"widget.0x.drv", "", 0, false},
		{"widget.0.dr", "", 0, false},
		{"widget.0", "", 0, false},
		{"widget.drv", "", 0, false},
		{"nodotatall", "", 0, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			name, slot, ok := ParseSocketName(c.name)
			require.Equal(t, c.wantOK, ok)
			if c.wantOK {
				require.Equal(t, c.wantName, name)
				require.Equal(t, c.wantSlot, slot)
			}
		})
	}
}
