package config

import _ "embed"

// ColumnTable is the default canonical column table (columns.yaml).
//
//go:embed columns.yaml
var ColumnTable []byte
