// File: shellline/frontend_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package shellline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/momentics/drv-shell/pool"
	"github.com/momentics/drv-shell/reactor"
	"github.com/momentics/drv-shell/registry"
)

func newTestFrontend(t *testing.T) (*Frontend, *bytes.Buffer) {
	t.Helper()
	svc, err := reactor.NewService()
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	reg := registry.New(svc, pool.NewBufferPool(), t.TempDir(), zaptest.NewLogger(t))
	var out bytes.Buffer
	return New(reg, &out), &out
}

func TestHandleLineHelp(t *testing.T) {
	f, out := newTestFrontend(t)
	f.HandleLine("help")
	require.Equal(t, HelpMsg+Prompt, out.String())
}

func TestHandleLineBlankIsInvalid(t *testing.T) {
	f, out := newTestFrontend(t)
	f.HandleLine("")
	require.Equal(t, InvalidMsg+Prompt, out.String())
}

func TestHandleLineUnknownIsInvalid(t *testing.T) {
	f, out := newTestFrontend(t)
	f.HandleLine("frobnicate")
	require.Equal(t, InvalidMsg+Prompt, out.String())
}

func TestHandleLineCmdMissingArgsIsInvalid(t *testing.T) {
	f, out := newTestFrontend(t)
	f.HandleLine("cmd widget 0")
	require.Equal(t, InvalidMsg+Prompt, out.String())
}

func TestHandleLineCmdUnknownDriverIsInvalid(t *testing.T) {
	f, out := newTestFrontend(t)
	f.HandleLine("cmd widget 0 on")
	require.Equal(t, InvalidMsg+Prompt, out.String())
}

func TestLineReaderSplitsMultipleLines(t *testing.T) {
	f, out := newTestFrontend(t)
	lr := NewLineReader(f)
	lr.Feed([]byte("help\nhelp\n"))
	require.Equal(t, strings.Repeat(HelpMsg+Prompt, 2), out.String())
}

func TestLineReaderBuffersPartialLine(t *testing.T) {
	f, out := newTestFrontend(t)
	lr := NewLineReader(f)
	lr.Feed([]byte("he"))
	require.Empty(t, out.String())
	lr.Feed([]byte("lp\n"))
	require.Equal(t, HelpMsg+Prompt, out.String())
}
