package file_ops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/toolchain"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the toolchain.Module interface for this package.
type Module struct{}

// CopyArgs defines the arguments of the 'copy' action.
type CopyArgs struct {
	From *string `cty:"from"`
	Into *string `cty:"into"`
}

// WriteArgs defines the arguments of the 'write' action.
type WriteArgs struct {
	Path    *string `cty:"path"`
	Content *string `cty:"content"`
}

// DeleteArgs defines the arguments of the 'delete' action.
type DeleteArgs struct {
	Paths []string `cty:"paths"`
}

// NewCopy is the factory for the 'copy' action. A file is copied into the
// destination directory; a directory is copied recursively.
func NewCopy(raw cty.Value) (toolchain.Func, error) {
	var args CopyArgs
	if err := toolchain.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	from, err := toolchain.RequireString("from", args.From)
	if err != nil {
		return nil, err
	}
	into, err := toolchain.RequireString("into", args.Into)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, inv toolchain.Invocation) error {
		src := resolve(inv.Dir, from)
		dst := resolve(inv.Dir, into)
		ctxlog.FromContext(ctx).Debug("Copying files.", "task", inv.Task, "from", src, "into", dst)

		info, err := os.Stat(src)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return copyFile(src, filepath.Join(dst, filepath.Base(src)), info.Mode())
		}
		return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			target := filepath.Join(dst, rel)
			if d.IsDir() {
				return os.MkdirAll(target, 0o755)
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			return copyFile(path, target, fi.Mode())
		})
	}, nil
}

// NewWrite is the factory for the 'write' action. Parent directories are
// created as needed.
func NewWrite(raw cty.Value) (toolchain.Func, error) {
	var args WriteArgs
	if err := toolchain.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	path, err := toolchain.RequireString("path", args.Path)
	if err != nil {
		return nil, err
	}
	var content string
	if args.Content != nil {
		content = *args.Content
	}

	return func(ctx context.Context, inv toolchain.Invocation) error {
		target := resolve(inv.Dir, path)
		ctxlog.FromContext(ctx).Debug("Writing file.", "task", inv.Task, "path", target, "bytes", len(content))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, []byte(content), 0o644)
	}, nil
}

// NewDelete is the factory for the 'delete' action. Missing paths are not
// an error.
func NewDelete(raw cty.Value) (toolchain.Func, error) {
	var args DeleteArgs
	if err := toolchain.DecodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if len(args.Paths) == 0 {
		return nil, errors.New("missing required argument \"paths\"")
	}

	return func(ctx context.Context, inv toolchain.Invocation) error {
		var errs []error
		for _, p := range args.Paths {
			target := resolve(inv.Dir, p)
			ctxlog.FromContext(ctx).Debug("Deleting path.", "task", inv.Task, "path", target)
			if err := os.RemoveAll(target); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}, nil
}

func copyFile(src, dst string, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// Register registers the file action kinds.
func (m *Module) Register(t *toolchain.Toolchain) {
	t.Register("copy", NewCopy)
	t.Register("write", NewWrite)
	t.Register("delete", NewDelete)
}
