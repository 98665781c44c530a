package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/repolens/repolens/internal/tools"
)

// targetsFile is the YAML shape accepted by --targets-file. Entries may be
// either "owner/repo" strings or {owner, repo} mappings.
type targetsFile struct {
	Repositories []targetEntry `yaml:"repositories"`
}

type targetEntry struct {
	spec  string
	owner string
	repo  string
}

func (e *targetEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&e.spec)
	case yaml.MappingNode:
		var m struct {
			Owner string `yaml:"owner"`
			Repo  string `yaml:"repo"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		e.owner = m.Owner
		e.repo = m.Repo
		return nil
	default:
		return fmt.Errorf("line %d: repository entry must be a string or a mapping", node.Line)
	}
}

// resolveTargets builds the comparison target list from positional
// "owner/repo" arguments or a YAML targets file, never both.
func resolveTargets(positional []string, targetsPath string) ([]tools.CompareTarget, error) {
	trimmed := strings.TrimSpace(targetsPath)
	if trimmed != "" {
		if len(positional) > 0 {
			return nil, fmt.Errorf("cannot combine positional repositories with --targets-file")
		}
		return readTargetsFile(trimmed)
	}

	return tools.ParseTargets(positional)
}

func readTargetsFile(path string) ([]tools.CompareTarget, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close() // nolint:errcheck
		reader = file
	}

	var parsed targetsFile
	if err := yaml.NewDecoder(reader).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse targets file: %w", err)
	}

	specs := make([]string, 0, len(parsed.Repositories))
	for _, entry := range parsed.Repositories {
		if entry.spec != "" {
			specs = append(specs, entry.spec)
			continue
		}
		specs = append(specs, entry.owner+"/"+entry.repo)
	}

	return tools.ParseTargets(specs)
}
