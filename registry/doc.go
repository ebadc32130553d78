// Package registry supplies the ordered, immutable handler list consumed by the
// aggregator and the event pipeline.
//
// A Set is built once at startup from a Source and validated: every handler has a
// unique name and exactly one handler has the base role. A Set that fails
// validation is a fatal configuration error and the gateway refuses to start.
//
// Three Source adapters are provided:
//
//   - Static wraps handler instances constructed in-process.
//   - CatalogSource resolves configured entries against a Catalog, an explicit
//     table mapping factory names to a role, a stage and a constructor.
//   - remote.Source (package handler/remote) describes handler services reached
//     over HTTP by base and decorator URLs.
//
// Set order is registry order. Merges are order sensitive, so the order in which
// handlers are configured decides which decorator wins a conflicting field.
package registry
