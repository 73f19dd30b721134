package charthttp

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"fxchart/internal/pkg/symbol"
)

//go:embed catalog.yaml
var catalogYAML []byte

// PairCatalog 是对外展示的常用货币对清单，仅作参考，不限制可请求的货币对。
type PairCatalog struct {
	MajorPairs []string `yaml:"major_pairs" json:"major_pairs"`
	CrossPairs []string `yaml:"cross_pairs" json:"cross_pairs"`
	Note       string   `yaml:"note" json:"note"`
}

func loadCatalog(raw []byte) (PairCatalog, error) {
	var cat PairCatalog
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return PairCatalog{}, fmt.Errorf("parse pair catalog failed: %w", err)
	}
	cat.MajorPairs = symbol.NormalizeList(cat.MajorPairs)
	cat.CrossPairs = symbol.NormalizeList(cat.CrossPairs)
	return cat, nil
}
