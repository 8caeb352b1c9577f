package materialize

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

type opKind int

const (
	opCreateDir opKind = iota
	opCreateFile
	opReplaceFile
)

type op struct {
	kind     opKind
	path     string
	original []byte
	mode     os.FileMode
}

// journal records every change a batch makes so it can be undone.
type journal struct {
	fs  afero.Fs
	ops []op
}

func (j *journal) createdDir(path string)  { j.ops = append(j.ops, op{kind: opCreateDir, path: path}) }
func (j *journal) createdFile(path string) { j.ops = append(j.ops, op{kind: opCreateFile, path: path}) }

func (j *journal) replacedFile(path string, original []byte, mode os.FileMode) {
	j.ops = append(j.ops, op{kind: opReplaceFile, path: path, original: original, mode: mode})
}

// rollback undoes the recorded operations newest first. It keeps going past
// failures and returns them joined.
func (j *journal) rollback() error {
	var errs []error
	for i := len(j.ops) - 1; i >= 0; i-- {
		o := j.ops[i]
		switch o.kind {
		case opReplaceFile:
			if err := afero.WriteFile(j.fs, o.path, o.original, o.mode); err != nil {
				errs = append(errs, fmt.Errorf("restoring %s: %w", o.path, err))
			}
		case opCreateFile:
			if err := j.fs.Remove(o.path); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("removing %s: %w", o.path, err))
			}
		case opCreateDir:
			empty, err := afero.IsEmpty(j.fs, o.path)
			if err != nil {
				if !os.IsNotExist(err) {
					errs = append(errs, fmt.Errorf("checking %s: %w", o.path, err))
				}
				continue
			}
			if !empty {
				continue
			}
			if err := j.fs.Remove(o.path); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("removing %s: %w", o.path, err))
			}
		}
	}
	j.ops = nil
	return errors.Join(errs...)
}
