// Package extract converts uploaded document files into plain text.
//
// Extraction is dispatched over a format registry keyed by file extension,
// with core.ErrUnsupportedFormat as the explicit fallback for unknown types.
package extract
