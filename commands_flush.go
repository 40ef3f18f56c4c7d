package gekko

// pendingAdd, pendingCompAdd and pendingCompRemoval buffer the
// mutations Commands records during a system's execution so the ECS
// is only actually restructured (archetype moves are not cheap)
// between stages, not mid-iteration over a query.
type pendingAdd struct {
	eid        EntityId
	components []any
}

type pendingCompAdd struct {
	eid        EntityId
	components []any
}

type pendingCompRemoval struct {
	eid        EntityId
	components []any
}

// FlushCommands applies every buffered Commands mutation to the ECS
// in the order it was recorded: entity removals, component removals,
// component additions, then new entities. Safe to call with nothing
// pending.
func (app *App) FlushCommands() {
	for _, eid := range app.pendingRemovals {
		app.ecs.removeEntity(eid)
	}
	app.pendingRemovals = app.pendingRemovals[:0]

	for _, r := range app.pendingCompRemovals {
		app.ecs.removeComponents(r.eid, r.components...)
	}
	app.pendingCompRemovals = app.pendingCompRemovals[:0]

	for _, a := range app.pendingCompAdds {
		app.ecs.addComponents(a.eid, a.components...)
	}
	app.pendingCompAdds = app.pendingCompAdds[:0]

	for _, a := range app.pendingAdditions {
		app.ecs.insertEntity(a.eid, a.components...)
	}
	app.pendingAdditions = app.pendingAdditions[:0]
}
