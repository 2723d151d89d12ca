package adb

// Android input key codes used by the remediation sequences.
const (
	KeycodeHome       = 3
	KeycodeBack       = 4
	KeycodeDpadUp     = 19
	KeycodeDpadDown   = 20
	KeycodeDpadLeft   = 21
	KeycodeDpadRight  = 22
	KeycodeDpadCenter = 23
)
