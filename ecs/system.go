package ecs

// System is one piece of per-tick behavior. Its lifecycle is
//
//	constructed -> Initialize -> Update... -> Release
//
// Initialize is called exactly once, before any Update, and is where a
// system creates every entity set it needs; creating sets lazily inside
// Update would miss diffs accumulated before the subscription. Update must
// call ApplyChanges on each of its sets before reading them, and must not
// keep component values across calls. All simulation truth lives in the
// EntityData; a system only holds its sets and injected collaborators.
type System interface {
	Initialize(data EntityData) error
	Update(frame *UpdateFrame) error
	Release()
}
