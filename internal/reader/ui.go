// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reader

import (
	"github.com/pdiddy/paper-reader/pkg/types"
)

// notify opens the snackbar with msg.
func (r *Reader) notify(msg string) {
	r.ShowSnackbar(msg)
}

// ShowSnackbar opens the snackbar with msg.
func (r *Reader) ShowSnackbar(msg string) {
	r.transition(func(s *state, _ *effects) bool {
		s.ui.Snackbar = Snackbar{Open: true, Message: msg, ActivatedAt: r.now()}
		return true
	})
}

// CloseSnackbar closes the snackbar.
func (r *Reader) CloseSnackbar() {
	r.transition(func(s *state, _ *effects) bool {
		if !s.ui.Snackbar.Open {
			return false
		}
		s.ui.Snackbar = Snackbar{}
		return true
	})
}

// OpenDrawer opens the side drawer.
func (r *Reader) OpenDrawer() { r.setDrawer(DrawerOpen) }

// CloseDrawer closes the side drawer.
func (r *Reader) CloseDrawer() { r.setDrawer(DrawerClosed) }

func (r *Reader) setDrawer(mode DrawerMode) {
	r.transition(func(s *state, _ *effects) bool {
		if s.ui.Drawer == mode {
			return false
		}
		s.ui.Drawer = mode
		return true
	})
}

// setting applies fn to the settings and reports whether they changed.
func (r *Reader) setting(fn func(c *types.ReaderConfig)) bool {
	return r.transition(func(s *state, _ *effects) bool {
		before := s.ui.Settings
		fn(&s.ui.Settings)
		return before != s.ui.Settings
	})
}

// SetMultiselect enables or disables appending to the selection.
func (r *Reader) SetMultiselect(enabled bool) {
	r.setting(func(c *types.ReaderConfig) { c.Multiselect = enabled })
}

// SetPropagateEntityEdits sets the default propagation for updates.
func (r *Reader) SetPropagateEntityEdits(enabled bool) {
	r.setting(func(c *types.ReaderConfig) { c.PropagateEntityEdits = enabled })
}

// SetAnnotationInteraction enables or disables selecting and clearing annotations.
func (r *Reader) SetAnnotationInteraction(enabled bool) {
	r.setting(func(c *types.ReaderConfig) { c.AnnotationInteraction = enabled })
}

// ShowAnnotations draws entity annotations.
func (r *Reader) ShowAnnotations() {
	r.setting(func(c *types.ReaderConfig) { c.AnnotationsShowing = true })
}

// HideAnnotations stops drawing entity annotations.
func (r *Reader) HideAnnotations() {
	r.setting(func(c *types.ReaderConfig) { c.AnnotationsShowing = false })
}

// ToggleEntityCreation flips entity creation mode.
func (r *Reader) ToggleEntityCreation() {
	r.setting(func(c *types.ReaderConfig) { c.EntityCreation = !c.EntityCreation })
}

// ToggleEntityEditing flips entity editing mode. Enabling it opens the drawer.
func (r *Reader) ToggleEntityEditing() {
	r.transition(func(s *state, _ *effects) bool {
		s.ui.Settings.EntityEditing = !s.ui.Settings.EntityEditing
		if s.ui.Settings.EntityEditing {
			s.ui.Drawer = DrawerOpen
		}
		return true
	})
}

// ToggleCopySentenceOnClick flips copying a sentence's TeX when it is clicked.
func (r *Reader) ToggleCopySentenceOnClick() {
	r.setting(func(c *types.ReaderConfig) { c.CopySentenceOnClick = !c.CopySentenceOnClick })
}

// SetEntityCreationType sets the type new entities are created with.
func (r *Reader) SetEntityCreationType(t types.EntityType) {
	r.transition(func(s *state, _ *effects) bool {
		if s.ui.CreationType == t {
			return false
		}
		s.ui.CreationType = t
		return true
	})
}

// SetAreaSelectionMethod sets how the region of a new entity is chosen.
func (r *Reader) SetAreaSelectionMethod(m AreaSelectionMethod) {
	r.transition(func(s *state, _ *effects) bool {
		if s.ui.AreaSelectionMethod == m {
			return false
		}
		s.ui.AreaSelectionMethod = m
		return true
	})
}

// Capabilities returns the flags derived from the current settings.
func (r *Reader) Capabilities() Capabilities {
	var c Capabilities
	r.read(func(s state) { c = deriveCapabilities(s.ui.Settings, r.engine != nil) })
	return c
}
