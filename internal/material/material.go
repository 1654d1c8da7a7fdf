package material

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/devlink-labs/devlink/internal/logging"
	"github.com/devlink-labs/devlink/internal/store"
	"github.com/devlink-labs/devlink/internal/userdata"
)

// TemplateDir is the directory inside a material package holding the template.
const TemplateDir = "material"

var (
	// ErrNoTemplate means the package has no material/ directory.
	ErrNoTemplate = errors.New("package has no material template")
	// ErrTargetNotEmpty means the target directory has files and --force was not given.
	ErrTargetNotEmpty = errors.New("target directory is not empty")
	// ErrCommandFailed wraps a non-zero exit from an install or start command.
	ErrCommandFailed = errors.New("material command failed")
)

// Ensurer installs or reuses a cached package.
type Ensurer interface {
	EnsureInstalled(ctx context.Context, d store.Descriptor) (*store.InstalledPackage, error)
}

// Options describe one scaffold request.
type Options struct {
	Name           string
	Version        string
	Target         string
	Force          bool
	InstallCommand string
	StartCommand   string
}

// Result reports what Scaffold did.
type Result struct {
	Package  *store.InstalledPackage
	Template string
	Target   string
	Files    int
}

// Scaffolder copies material templates into project directories.
type Scaffolder struct {
	cliHome string
	ensurer Ensurer
	logger  *log.Logger
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewScaffolder creates a Scaffolder caching materials under cliHome.
func NewScaffolder(cliHome string, ensurer Ensurer, logger *log.Logger) *Scaffolder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scaffolder{
		cliHome: cliHome,
		ensurer: ensurer,
		logger:  logger,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Descriptor returns the cache descriptor for a material package.
func (s *Scaffolder) Descriptor(name, version string) (store.Descriptor, error) {
	d, err := store.NewDescriptor(name, version, userdata.MaterialPath(s.cliHome))
	if err != nil {
		return d, err
	}
	d.FilesOnly = true
	return d, nil
}

// Scaffold ensures the material is cached, copies its template into the
// target and runs the optional install and start commands there.
func (s *Scaffolder) Scaffold(ctx context.Context, opts Options) (*Result, error) {
	target := opts.Target
	if target == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		target = wd
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolving target: %w", err)
	}

	if err := s.prepareTarget(target, opts.Force); err != nil {
		return nil, err
	}

	d, err := s.Descriptor(opts.Name, opts.Version)
	if err != nil {
		return nil, err
	}
	pkg, err := s.ensurer.EnsureInstalled(ctx, d)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("material package", "name", pkg.Descriptor.Name, "version", pkg.Version, "dir", pkg.Dir)

	template := filepath.Join(pkg.Dir, TemplateDir)
	info, err := os.Stat(template)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s@%s", ErrNoTemplate, pkg.Descriptor.Name, pkg.Version)
	}

	n, err := copyDir(template, target)
	if err != nil {
		return nil, fmt.Errorf("copying template to %s: %w", target, err)
	}
	logging.Success(s.logger, "material copied", "target", target, "files", n)

	if opts.InstallCommand != "" {
		logging.Notice(s.logger, "installing dependencies", "command", opts.InstallCommand)
		if err := s.run(ctx, target, opts.InstallCommand); err != nil {
			return nil, err
		}
		logging.Success(s.logger, "dependencies installed")
	}
	if opts.StartCommand != "" {
		if err := s.run(ctx, target, opts.StartCommand); err != nil {
			return nil, err
		}
	}

	return &Result{Package: pkg, Template: template, Target: target, Files: n}, nil
}

func (s *Scaffolder) prepareTarget(target string, force bool) error {
	empty, names, err := IsEmptyDir(target)
	if err != nil {
		return fmt.Errorf("reading target %s: %w", target, err)
	}
	if !empty {
		if !force {
			return fmt.Errorf("%w: %s contains %s (use --force to overwrite)", ErrTargetNotEmpty, target, strings.Join(names, ", "))
		}
		s.logger.Warn("emptying target directory", "target", target)
		if err := emptyDir(target); err != nil {
			return fmt.Errorf("emptying %s: %w", target, err)
		}
	}
	return os.MkdirAll(target, userdata.DirPermNormal)
}

// run executes a whitespace-separated command line in dir with inherited stdio.
func (s *Scaffolder) run(ctx context.Context, dir, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Dir = dir
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrCommandFailed, line, err)
	}
	return nil
}
