// Package editor opens files the assistant touched in the user's editor.
package editor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"smithy/internal/logging"
	"smithy/internal/workspacepaths"
)

const pathPlaceholder = "{path}"

type Opener interface {
	Open(ctx context.Context, path string) error
}

type nopOpener struct{}

func (nopOpener) Open(context.Context, string) error { return nil }

// Nop returns an Opener that does nothing.
func Nop() Opener {
	return nopOpener{}
}

type starter func(name string, args ...string) error

// CommandOpener runs a command template such as "code -r {path}". Without a
// placeholder the path is appended as the last argument.
type CommandOpener struct {
	argv      []string
	workspace string
	logger    logging.Logger
	start     starter
}

func NewCommandOpener(template, workspace string, logger logging.Logger) (*CommandOpener, error) {
	argv := strings.Fields(strings.TrimSpace(template))
	if len(argv) == 0 {
		return nil, errors.New("open command is empty")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &CommandOpener{
		argv:      argv,
		workspace: strings.TrimSpace(workspace),
		logger:    logger,
		start:     startDetached,
	}, nil
}

func (o *CommandOpener) Open(ctx context.Context, path string) error {
	if o == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	resolved, err := o.Resolve(path)
	if err != nil {
		return err
	}
	args := o.Args(resolved)
	o.logger.Debug("editor_open", logging.F("path", resolved), logging.F("command", args[0]))
	return o.start(args[0], args[1:]...)
}

// Resolve makes path absolute against the workspace.
func (o *CommandOpener) Resolve(path string) (string, error) {
	return workspacepaths.ResolveFile(o.workspace, path)
}

// Args expands the template for path.
func (o *CommandOpener) Args(path string) []string {
	out := make([]string, 0, len(o.argv)+1)
	replaced := false
	for _, arg := range o.argv {
		if strings.Contains(arg, pathPlaceholder) {
			arg = strings.ReplaceAll(arg, pathPlaceholder, path)
			replaced = true
		}
		out = append(out, arg)
	}
	if !replaced {
		out = append(out, path)
	}
	return out
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open command %q failed: %w", name, err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// Recorder remembers opened paths. The CLI uses it to list files a stream
// edited.
type Recorder struct {
	Paths []string
}

func (r *Recorder) Open(_ context.Context, path string) error {
	r.Paths = append(r.Paths, path)
	return nil
}
