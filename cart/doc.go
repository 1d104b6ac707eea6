// Package cart implements the buyer's in-progress order: lines from exactly one
// seller, clamped to the seller's stock, persisted on every mutation.
//
// # Invariants
//
//   - Every line belongs to the cart's seller. Adding from another seller
//     replaces the cart.
//   - 1 <= Quantity <= MaxQuantity for every line. Lines are removed, never
//     kept at zero.
//   - The cart has no lines exactly when it has no seller.
//
// # Persistence
//
// Two independent blobs are written after each mutation: the JSON line array
// under [ItemsKey] and the JSON seller id (or null) under [SellerKey]. Write
// failures are logged and swallowed; the in-memory cart stays authoritative.
package cart
