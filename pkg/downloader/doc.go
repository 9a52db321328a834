// Package downloader implements the per-asset download operations against a
// Socrata-style metadata API: the manifest snapshot that seeds a run, the
// per-asset detail fetch, the retried file blob download, and the CSV table
// export. Failure handling follows one rule: only a manifest fetch failure
// may abort a run; everything else is logged and absorbed so the batch can
// continue.
package downloader
