// Package browser opens article links with the platform's URL opener.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/pders01/wikan/internal/config"
	"github.com/pders01/wikan/internal/validation"
)

// fallbackOpeners are tried in order when the configured opener is missing.
var fallbackOpeners = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open", "sensible-browser", "x-www-browser", "firefox"},
	"windows": {"start"},
}

type Launcher struct {
	opener    string
	goos      string
	validator *validation.URLValidator
	command   func(name string, args ...string) *exec.Cmd
}

func NewLauncher(cfg *config.Config) *Launcher {
	l := &Launcher{
		goos:      runtime.GOOS,
		validator: validation.NewArticleURLValidator(),
		command:   exec.Command,
	}

	l.opener = cfg.UI.Opener
	if l.opener == "" || (l.goos != "windows" && findCommand(l.opener) == "") {
		if found := findCommand(fallbackOpeners[l.goos]...); found != "" {
			l.opener = found
		}
	}
	return l
}

// Open validates url and hands it to the opener without waiting for it.
func (l *Launcher) Open(url string) error {
	target, err := l.validator.ValidateAndNormalize(url)
	if err != nil {
		return fmt.Errorf("refusing to open %q: %w", url, err)
	}
	if l.opener == "" {
		return fmt.Errorf("no application found to open URL")
	}

	cmd := l.buildCommand(target)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.opener, err)
	}

	go func() {
		_ = cmd.Wait()
	}()

	return nil
}

func (l *Launcher) buildCommand(target string) *exec.Cmd {
	if l.goos == "windows" && l.opener == "start" {
		return l.command("cmd", "/c", "start", "", target)
	}
	return l.command(l.opener, target)
}

func findCommand(commands ...string) string {
	for _, cmd := range commands {
		if _, err := exec.LookPath(cmd); err == nil {
			return cmd
		}
	}
	return ""
}
