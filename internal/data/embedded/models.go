// Package embedded provides access to Synergy's embedded data files.
package embedded

import _ "embed"

// ModelCatalogData contains the embedded model registry YAML compiled into
// the binary.
//
//go:embed models.yaml
var ModelCatalogData []byte
