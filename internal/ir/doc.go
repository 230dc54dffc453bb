// Package ir provides the value types held by the normalized store.
//
// Values form a sealed tagged union: Null, String, Int, Bool, Array, Object,
// and Ident. An Ident is a (table, id) reference to one normalized entity and
// is the only value the resolvers treat specially. ir imports nothing
// internal so every other package can depend on it.
//
// Constraints:
//   - no float type; numbers are int64
//   - the JSON form of an Ident is {"$ident": [table, id]}
//   - MarshalCanonical (RFC 8785) is the only encoding used for content ids
package ir
