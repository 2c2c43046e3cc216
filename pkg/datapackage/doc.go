// Package datapackage implements the file-backed store for a datapackage:
// the named JSON records (configurations, views, formats, resources and the
// package metadata) that live under a base path, and the merge/unmerge
// protocol that ties a resource's schema to a reusable format definition.
// A resource loaded with a format carries the format's schema in memory;
// the write path strips it again so the on-disk record never contains a
// format copy.
package datapackage
