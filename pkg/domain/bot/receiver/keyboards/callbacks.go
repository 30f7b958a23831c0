package keyboards

import "strings"

// Callback keys
const (
	CbMain   = "main"
	CbBook   = "book"
	CbMy     = "my"
	CbHelp   = "help"
	CbBack   = "back"
	CbNext   = "next"
	CbSubmit = "submit"
	CbNoop   = "noop"

	CbCalPrev = "cal:prev"
	CbCalNext = "cal:next"

	PProvider = "prov:"  // prov:12
	PType     = "type:"  // type:evaluacion
	PDuration = "dur:"   // dur:60
	PDay      = "day:"   // day:2025-07-08
	PSlot     = "slot:"  // slot:09:30
	PPain     = "pain:"  // pain:7, pain:-1 clears
	PField    = "field:" // field:motivo
)

// Is strips prefix from k and reports whether it was there.
func Is(k, prefix string) (string, bool) {
	if strings.HasPrefix(k, prefix) {
		return strings.TrimPrefix(k, prefix), true
	}
	return "", false
}
