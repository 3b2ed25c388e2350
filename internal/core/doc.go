// Package core provides the subsidy lookup and calculation logic.
//
// This package holds all domain logic independent of any transport: the web
// server, the CLI and tests use it without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Dataset: the in-memory tabular store of vehicles, regions,
//     manufacturers and vehicle-region overrides, built from a [Draft].
//   - Region directory: fixed display rank and group of the metropolitan
//     governments, plus the province each known city or county belongs to.
//   - Resolver: an ordered list of [Strategy] values that find the local
//     subsidy of a vehicle in a region.
//   - Calculator: price tiers, the acquisition tax and the final price.
//   - Service: the entry point that owns the active dataset and loads it
//     through the cache and the source chain.
//
// # Loading
//
// [Service.Load] consults the cache first. On a miss it walks the sources in
// order and the first one that yields a non-empty dataset wins. The overlay
// source, when set, contributes its vehicle-region amounts, and the merged
// dataset is written back to the cache:
//
//	svc := core.NewService(
//	    []core.Source{primary, secondary, sheets, fallback},
//	    core.WithCache(gatekeeper, core.DefaultCacheKey),
//	    core.WithOverlay(secondary),
//	)
//
// # Amounts
//
// Every amount is an integer number of 만원 (10,000 KRW). Scaling by the
// subsidy rate floors each component before they are summed.
//
// # Error Handling
//
// Lookups never fail: unknown vehicles and regions resolve to zero amounts.
// Request validation errors are sentinels, and [MapError] maps any error to a
// user message with a code for support reference:
//
//   - REQ001-REQ007: Request errors (price, vehicle, group, body)
//   - NF001-NF002: Lookup errors (region, vehicle)
//   - DATA001-DATA005: Source errors (configuration, format, remote)
//   - CACHE001-CACHE002: Cache errors
//   - RATE001: Rate limiting
package core
