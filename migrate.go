package chord

// runMigrationHook invokes the migrateKeysAfterJoin placeholder (spec
// §6) exactly once, after the finger table is initialized and before
// the periodic maintenance tasks start. The core has no opinion on the
// storage layer's payload protocol; it only requires the hook to
// terminate, and recovers a panic the same way it would swallow a
// returned error.
func (n *Node) runMigrationHook(predecessor NodeRef) {
	hook := n.cfg.OnJoinComplete
	if hook == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("migrateKeysAfterJoin panicked", "recovered", r)
		}
	}()

	if err := hook(n.self, predecessor); err != nil {
		n.logger.Error("migrateKeysAfterJoin failed", "error", err)
	}
}
