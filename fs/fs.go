package appfs

import "embed"

// FS holds the database migrations and the email templates.
//
//go:embed migrations all:templates
var FS embed.FS
