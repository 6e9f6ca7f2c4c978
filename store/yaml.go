package store

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

// configDocument is the YAML shape of a configuration file: one or more
// device types under a top-level "duts" key.
type configDocument struct {
	Duts []*model.DutConfig `yaml:"duts"`
}

// DecodeYAML reads device configurations from a YAML document. Every
// configuration is validated; the first invalid one fails the whole
// decode so a typo cannot silently drop a device type.
func DecodeYAML(r io.Reader) ([]*model.DutConfig, error) {
	var doc configDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode dut config yaml: %w", err)
	}
	for _, cfg := range doc.Duts {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return doc.Duts, nil
}

// ImportYAML loads a YAML configuration file and upserts every device
// type it defines, returning the number imported.
func (s *Store) ImportYAML(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	configs, err := DecodeYAML(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	for _, cfg := range configs {
		if err := s.Save(ctx, cfg); err != nil {
			return 0, err
		}
	}
	return len(configs), nil
}
