package catalog

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"strings"
)

//go:embed builtin
var builtinFS embed.FS

// BuiltinName is the source name of the embedded template set.
const BuiltinName = "builtin"

// Source is one place templates are read from. Earlier sources in a list win
// version ties against later ones.
type Source struct {
	Name string
	FS   fs.FS
}

// BuiltinSource returns the templates compiled into the binary.
func BuiltinSource() Source {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic("catalog: builtin templates not embedded: " + err.Error())
	}
	return Source{Name: BuiltinName, FS: sub}
}

// DirSource reads templates from a directory on disk.
func DirSource(dir string) Source {
	return Source{Name: dir, FS: os.DirFS(dir)}
}

// isTemplateFile reports whether a path inside a source holds a template.
// README files and names starting with "_" or "." are ignored so sources can
// carry documentation next to their templates.
func isTemplateFile(p string) bool {
	name := path.Base(p)
	if !strings.HasSuffix(name, ".md") {
		return false
	}
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.EqualFold(name, "README.md")
}
