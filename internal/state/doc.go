// Package state holds the application's normalized store.
//
// A Snapshot is an immutable mapping from top-level keys to values. Entity
// tables are top-level keys named after the Ident table they hold, each
// mapping Ident.Key() to the entity:
//
//	{
//	  "app/subpage":    "overview",
//	  "app/route-data": {"organization": {$ident: [organizationByVcsTypeAndName, {...}]}},
//	  "organizationByVcsTypeAndName": {
//	    "{\"name\":\"acme\",\"vcsType\":\"github\"}": {"name": "acme", ...}
//	  }
//	}
//
// Exactly one Atom exists per running application. It holds the current
// Snapshot and replaces it wholesale on every transition; nothing edits a
// Snapshot in place. A resolution pass derefs the atom once and reads that
// snapshot for the whole pass.
package state
