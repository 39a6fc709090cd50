// Package migrations registers the schema. Import it for side effects
// wherever a migration.Runner is used.
package migrations
