// Package workspace is the playground's state store.
//
// The store is the source of truth for the three fragments, the UI
// preferences and the id of the snippet being edited. It owns the console
// log and hands it to the engine as its sink. Observers are told about every
// value-level bundle change, in the order the changes were made.
//
// Example Usage:
//
//	store := workspace.NewStore(template.Default(), console.NewLog(1000))
//	cancel := store.Observe(engine.Submit)
//	defer cancel()
//	store.SetFragment(types.FragmentScript, "console.log('hi')")
package workspace
