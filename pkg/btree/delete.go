package btree

// Delete is listed for interface completeness only; deletion with
// rebalancing is an explicit non-goal (spec §1, §4.4).
func (t *Tree) Delete(key []byte) error {
	return newErr("Delete", Unimpl, nil)
}
