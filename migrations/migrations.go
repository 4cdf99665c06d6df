// Package migrations empaqueta los archivos SQL del esquema para ejecutarlos
// al arranque con golang-migrate (fuente iofs).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
