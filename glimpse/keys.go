package glimpse

type Key uint32

const (
	KeyUnknown Key = iota
	KeyW
	KeyA
	KeyS
	KeyD
	KeyQ
	KeyE
	KeyR
	KeySpace
	KeyShift
	KeyControl
	KeyEscape
	KeyTab
	Key1
	Key2
	Key3
	KeyPlus
	KeyMinus
)

var keyNames = map[Key]string{
	KeyW:       "W",
	KeyA:       "A",
	KeyS:       "S",
	KeyD:       "D",
	KeyQ:       "Q",
	KeyE:       "E",
	KeyR:       "R",
	KeySpace:   "Space",
	KeyShift:   "Shift",
	KeyControl: "Control",
	KeyEscape:  "Escape",
	KeyTab:     "Tab",
	Key1:       "1",
	Key2:       "2",
	Key3:       "3",
	KeyPlus:    "Plus",
	KeyMinus:   "Minus",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}

	return "Unknown"
}
