package fixture

import (
	"fmt"

	"golang.org/x/tools/txtar"

	"github.com/arborlang/tvmcore/pkg/ir"
)

// LoadArchive parses every file in the txtar archive at path as a fixture
// notation function body, keyed by the archive file's name.
func LoadArchive(path string) (map[string]*ir.Function, error) {
	archive, err := txtar.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: reading archive %s: %w", path, err)
	}

	out := make(map[string]*ir.Function, len(archive.Files))
	for _, f := range archive.Files {
		fn, err := Parse(string(f.Data))
		if err != nil {
			return nil, fmt.Errorf("fixture: parsing %s in %s: %w", f.Name, path, err)
		}
		out[f.Name] = fn
	}
	return out, nil
}
