// Package preference persists small per-device settings through secure
// storage: the colour theme and the resident context the console is acting
// for.
//
//	theme := preference.NewTheme(storage, "theme")
//	_ = theme.Set(preference.ThemeDark)
//	current := theme.Get()
package preference
