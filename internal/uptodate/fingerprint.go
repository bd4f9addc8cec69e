package uptodate

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/specialistvlad/buildgrid/internal/task"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

var errMissingOutput = errors.New("declared output does not exist")

// Fingerprint hashes everything that decides whether a task's outputs are
// current: its action kind and arguments, and the content of every declared
// input and output file. Directories are hashed recursively. A missing
// input hashes as absent; a missing output is an error wrapping
// errMissingOutput.
func Fingerprint(spec *task.Spec) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "kind:%s\n", spec.Action.Kind)
	if spec.Action.Args.IsKnown() && !spec.Action.Args.IsNull() {
		args, err := ctyjson.Marshal(spec.Action.Args, spec.Action.Args.Type())
		if err != nil {
			return "", fmt.Errorf("encode arguments: %w", err)
		}
		fmt.Fprintf(h, "args:%s\n", args)
	}

	for _, in := range sorted(spec.Inputs) {
		if err := hashTree(h, "in", resolve(spec.Dir, in), false); err != nil {
			return "", err
		}
	}
	for _, out := range sorted(spec.Outputs) {
		if err := hashTree(h, "out", resolve(spec.Dir, out), true); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashTree(w io.Writer, role, root string, required bool) error {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		if required {
			return fmt.Errorf("%s: %w", root, errMissingOutput)
		}
		fmt.Fprintf(w, "%s:%s:absent\n", role, root)
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return hashFile(w, role, root, root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		return hashFile(w, role, root, path)
	})
}

func hashFile(w io.Writer, role, root, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fh := sha256.New()
	if _, err := io.Copy(fh, f); err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	fmt.Fprintf(w, "%s:%s:%s:%x\n", role, root, rel, fh.Sum(nil))
	return nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
