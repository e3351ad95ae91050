package models_base

// pad4 rounds l up to the next multiple of 4, the AVP/message alignment
// boundary defined by RFC 6733.
func pad4(l int) int {
	return (l + 3) &^ 3
}
