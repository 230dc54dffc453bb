// Package app binds the application's keys and mutations to parser
// handlers.
//
// Register is called once at composition time, before the first pass:
//
//	reg := parser.NewRegistry()
//	if err := app.Register(reg, sink); err != nil {
//		return err
//	}
//	p := parser.New(reg, atom)
//
// Key policies:
//
//	app/route, app/subpage   local default, never sent remotely
//	app/current-user         page-bootstrap fields stripped from the remote query
//	app/route-data           children re-rooted at the idents they hold
//	legacy/state             whole mapping minus inputs, never sent remotely
//	entity tables            forwarded unchanged
package app
