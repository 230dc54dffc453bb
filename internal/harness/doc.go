// Package harness runs scenario files against the application's parser.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: route_change
//	description: "Setting route data re-roots the remote query"
//	fixture: ../fixtures/dashboard.yaml   # store fixture, relative to this file
//	seed:                                 # or an inline store
//	  app/route: org
//	steps:
//	  - local: [app/route]
//	    expect:
//	      value: {app/route: org}
//	  - mutate: route/set-data
//	    params: {subpage: overview}
//	  - remote: [{app/route-data: [{organization: [name]}]}]
//	    expect:
//	      query: [{app/route-data: [{join: {$ident: [...]}, query: [name]}]}]
//	assertions:
//	  - type: store_value
//	    path: [app/subpage]
//	    value: overview
//
// Each step is exactly one of local, remote or mutate. Expect clauses:
//
//   - value: local pass; each listed key must equal the resolved value
//   - query, roots: remote pass; the forwarded query must match exactly
//   - empty: remote pass; nothing is forwarded
//   - error: the step fails with this error code (or message substring)
//
// # Assertion Types
//
//   - store_value: the store holds value at path
//   - store_absent: nothing is stored at path
//   - event_count: exactly count analytics events were emitted
//   - event_contains: an emitted event matches event (subset match)
//   - journal_count: the journal table holds count rows
//   - trace_count: the trace holds count steps labeled step
//   - trace_order: the labeled steps appear in the given order
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory journal with a fresh
// logical clock and "pass-N" pass ids, so the same scenario always produces
// the same trace. RunWithGolden compares that trace with a goldie file.
package harness
