// Package schema embeds the JSON schema for the message wire format.
package schema

import "embed"

//go:embed *.schema.json
var FS embed.FS
