package browser

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/wikan/internal/config"
	"github.com/pders01/wikan/internal/validation"
)

type recorded struct {
	name string
	args []string
}

func testLauncher(t *testing.T, goos, opener string) (*Launcher, *[]recorded) {
	t.Helper()
	var calls []recorded
	l := &Launcher{
		opener:    opener,
		goos:      goos,
		validator: validation.NewArticleURLValidator(),
		command: func(name string, args ...string) *exec.Cmd {
			calls = append(calls, recorded{name: name, args: args})
			return exec.Command("true")
		},
	}
	return l, &calls
}

func TestLauncher_Open(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true command not available")
	}

	l, calls := testLauncher(t, "linux", "xdg-open")
	require.NoError(t, l.Open("https://es.wikipedia.org/wiki/Gato"))
	require.Len(t, *calls, 1)
	assert.Equal(t, "xdg-open", (*calls)[0].name)
	assert.Equal(t, []string{"https://es.wikipedia.org/wiki/Gato"}, (*calls)[0].args)
}

func TestLauncher_OpenWindows(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true command not available")
	}

	l, calls := testLauncher(t, "windows", "start")
	require.NoError(t, l.Open("https://es.wikipedia.org/wiki/Gato"))
	require.Len(t, *calls, 1)
	assert.Equal(t, "cmd", (*calls)[0].name)
	assert.Equal(t, []string{"/c", "start", "", "https://es.wikipedia.org/wiki/Gato"}, (*calls)[0].args)
}

func TestLauncher_RejectsUnsafeURLs(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "empty", url: ""},
		{name: "javascript scheme", url: "javascript:alert(1)"},
		{name: "file scheme", url: "file:///etc/passwd"},
		{name: "localhost", url: "http://localhost:8000/admin"},
		{name: "quote injection", url: "https://es.wikipedia.org/wiki/\"x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, calls := testLauncher(t, "linux", "xdg-open")
			assert.Error(t, l.Open(tt.url))
			assert.Empty(t, *calls)
		})
	}
}

func TestLauncher_NoOpener(t *testing.T) {
	l, calls := testLauncher(t, "plan9", "")
	assert.Error(t, l.Open("https://es.wikipedia.org/wiki/Gato"))
	assert.Empty(t, *calls)
}

func TestNewLauncher_UsesConfiguredOpener(t *testing.T) {
	cfg := config.TestConfig()
	cfg.UI.Opener = "true"
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true command not available")
	}

	assert.Equal(t, "true", NewLauncher(cfg).opener)
}
