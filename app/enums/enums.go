// Package enums provides type-safe enumeration types for flipper.
//
// The enum types are defined as unexported integer types in this file, and the go:generate
// directives invoke the go-pkgz/enum generator to create the exported types with String,
// Parse*, Must*, text marshaling and sql Scan/Value support in separate *_enum.go files.
//
// Usage:
//
//	mode := enums.DisplayModeFlip
//	fmt.Println(mode.String()) // "flip"
//
//	parsed, err := enums.ParseDisplayMode("plain")
//	if err != nil {
//	    // handle invalid input
//	}
//
// To regenerate the enum types after modifications:
//
//	go generate ./app/enums
package enums

//go:generate go run github.com/go-pkgz/enum@latest -type displayMode -lower
//go:generate go run github.com/go-pkgz/enum@latest -type theme -lower

// displayMode selects the card rendering strategy.
// This is an unexported type used only as input for the code generator.
type displayMode int

const (
	displayModePlain displayMode = iota
	displayModeFlip
)

// theme represents UI themes.
// This is an unexported type used only as input for the code generator.
type theme int

const (
	themeLight theme = iota
	themeDark
)
