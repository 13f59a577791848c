// Package export renders sessions as text reports, CSV and XLSX, and
// writes and restores JSON backups of the whole store.
package export
