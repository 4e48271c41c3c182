package model

// Section — избирательная секция.
type Section struct {
	ID            int
	NumeroSeccion int
}

// Party — политическая партия.
type Party struct {
	ID     int
	Nombre string
}
