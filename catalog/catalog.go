// Package catalog loads the palette's command catalog from TOML and serves
// it ordered by usage and by semantic closeness to the captured text.
package catalog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	glance "github.com/Paranoid-AF/glance"
	defaults "github.com/Paranoid-AF/glance/default"
)

// file is the on-disk layout: a list of [[command]] tables.
type file struct {
	Commands []glance.CommandSpec `toml:"command"`
}

// Decode reads a TOML catalog from r and validates every command.
func Decode(r io.Reader) ([]glance.Command, error) {
	var f file
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decode catalog: unknown key %s", undecoded[0])
	}
	return build(f.Commands)
}

// Parse is Decode for a string.
func Parse(data string) ([]glance.Command, error) {
	return Decode(strings.NewReader(data))
}

// Load reads the catalog file at path. A missing file is reported with an
// error matching fs.ErrNotExist.
func Load(path string) ([]glance.Command, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cmds, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cmds, nil
}

// Default returns the built-in catalog.
func Default() []glance.Command {
	cmds, err := Parse(defaults.DefaultCatalogTOML)
	if err != nil {
		panic("catalog: invalid embedded default_catalog.toml: " + err.Error())
	}
	return cmds
}

func build(specs []glance.CommandSpec) ([]glance.Command, error) {
	seen := make(map[string]bool, len(specs))
	cmds := make([]glance.Command, 0, len(specs))
	for i, s := range specs {
		cmd, err := s.Build()
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i+1, err)
		}
		if seen[cmd.ID] {
			return nil, fmt.Errorf("command %d: duplicate id %q", i+1, cmd.ID)
		}
		seen[cmd.ID] = true
		if a, ok := cmd.Action(); ok && !a.Type.Known() {
			return nil, fmt.Errorf("command %d: unknown action_type %q", i+1, a.Type)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
